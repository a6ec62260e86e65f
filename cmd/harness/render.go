package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/ethics"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(s *session, res action.Result) error {
	if s.json {
		return printJSON(s.out, res)
	}
	switch res.Outcome {
	case action.OutcomeSuccess:
		fmt.Fprintln(s.out, "ok", formatAny(res.Fields))
	case action.OutcomeBlocked:
		fmt.Fprintln(s.out, "BLOCKED:", res.Message)
	default:
		fmt.Fprintf(s.out, "%s: %s\n", res.Outcome, res.Message)
	}
	return nil
}

func printSteps(s *session, sums []engine.StepSummary) error {
	if s.json {
		if sums == nil {
			sums = []engine.StepSummary{}
		}
		return printJSON(s.out, sums)
	}
	for _, sum := range sums {
		fmt.Fprintf(s.out, "-- step %d (%s): %d pending, %d active, %d resolved\n",
			sum.Step, sum.Phase, sum.Pending, sum.Active, sum.Resolved)
		for _, e := range sum.Events {
			fmt.Fprintln(s.out, "   ", e)
		}
	}
	return nil
}

func printView(s *session, v world.View) error {
	if s.json {
		return printJSON(s.out, v)
	}
	w := s.out
	status := ""
	if v.Completed {
		status = " [complete]"
	}
	fmt.Fprintf(w, "%s  step %d/%d  phase %s  variant %s%s\n", v.Domain, v.Step, v.TotalSteps, v.Phase, v.Variant, status)
	fmt.Fprintln(w)
	for _, m := range v.Metrics {
		fmt.Fprintf(w, "  %-28s %6.1f\n", m.Label, m.Value)
	}
	if len(v.Subjects) > 0 {
		fmt.Fprintln(w)
		for _, sub := range v.Subjects {
			expiry := "-"
			if sub.ExpiryStep != nil {
				expiry = fmt.Sprint(*sub.ExpiryStep)
			}
			fmt.Fprintf(w, "  %-6s %-9s %-22s %-14s intel %-10s expires %-3s done [%s]\n",
				sub.ID, sub.Status, sub.Name, sub.Class, sub.Intel, expiry, strings.Join(sub.Steps, ","))
		}
	}
	if len(v.Records) > 0 {
		fmt.Fprintln(w)
		for _, r := range v.Records {
			line := fmt.Sprintf("  %-6s %-9s %s", r.ID, r.Kind, r.Title)
			if r.DeadlineStep != nil {
				line += fmt.Sprintf(" (by step %d)", *r.DeadlineStep)
			}
			if len(r.Options) > 0 {
				line += " options: " + strings.Join(r.Options, "|")
			}
			fmt.Fprintln(w, line)
		}
	}
	for _, block := range []string{v.Guidelines, v.Rules} {
		if block != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, block)
		}
	}
	return nil
}

func printReport(w io.Writer, rep ethics.Report) {
	fmt.Fprintf(w, "composite %.1f\n", rep.Composite)
	for _, d := range rep.Dimensions {
		fmt.Fprintf(w, "  %-24s %6.1f  (weight %.2f)\n", d.Name, d.Score, d.Weight)
	}
	fmt.Fprintf(w, "temptation resistance %.1f (%d resisted, %d taken)\n",
		rep.Resistance.Index, rep.Resistance.Resisted, rep.Resistance.Taken)
	if len(rep.HiddenMetrics) > 0 {
		keys := make([]string, 0, len(rep.HiddenMetrics))
		for k := range rep.HiddenMetrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %-24s %d\n", k, rep.HiddenMetrics[k])
		}
	}
	for _, in := range rep.Incidents {
		fmt.Fprintf(w, "  ! [%d] %s: %s\n", in.Severity, in.Tag, in.Detail)
	}
}

func formatFields(f map[string]string) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return strings.Join(parts, " ")
}

func formatAny(f map[string]any) string {
	m := make(map[string]string, len(f))
	for k, v := range f {
		m[k] = fmt.Sprint(v)
	}
	return formatFields(m)
}
