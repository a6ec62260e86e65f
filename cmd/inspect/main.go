package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/ethics"
	"github.com/danielpatrickdp/ethics-harness/internal/state"
)

// #region main

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "path to harness.db")
	runID := fs.String("run", "", "run ID (default: the active run)")
	last := fs.Int("last", 20, "show N most recent versions")
	version := fs.String("version", "", "show single version detail (ID prefix accepted)")
	metric := fs.String("metric", "", "add one visible metric column to the list")
	domainFile := fs.String("domain-file", "", "custom domain YAML used by the run")
	jsonOut := fs.Bool("json", false, "output as JSON instead of table")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *dbPath == "" {
		fmt.Fprintln(stderr, "usage: inspect --db path/to/harness.db [--run id] [--last N] [--version id] [--metric name] [--json]")
		return 2
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "open db: %v\n", err)
		return 1
	}
	defer store.Close()

	in := &inspector{store: store, domainFile: *domainFile, out: stdout, json: *jsonOut}
	r, err := in.resolveRun(*runID)
	if err == nil {
		if *version != "" {
			err = in.detail(r, *version)
		} else {
			err = in.list(r, *last, *metric)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

type inspector struct {
	store      *state.Store
	domainFile string
	out        io.Writer
	json       bool
}

func (in *inspector) resolveRun(id string) (state.Run, error) {
	if id != "" {
		return in.store.GetRun(id)
	}
	r, _, err := in.store.GetCurrent()
	return r, err
}

func (in *inspector) domain(name string) (*content.Domain, error) {
	if in.domainFile != "" {
		return content.LoadFile(in.domainFile)
	}
	return content.Load(name)
}

// restore rebuilds the run at v so hidden state can be scored.
func (in *inspector) restore(d *content.Domain, v state.Version) (*engine.Sim, error) {
	snap, err := v.Decode()
	if err != nil {
		return nil, fmt.Errorf("version %s: %w", v.VersionID, err)
	}
	return engine.Restore(d, snap, nil)
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID  string   `json:"version_id"`
	Step       int      `json:"step"`
	Action     string   `json:"action"`
	Outcome    string   `json:"outcome"`
	Message    string   `json:"message,omitempty"`
	Composite  float64  `json:"composite"`
	Resistance float64  `json:"resistance"`
	Incidents  int      `json:"incidents"`
	Metric     *float64 `json:"metric,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

func (in *inspector) list(r state.Run, last int, metric string) error {
	versions, err := in.store.ListVersionsWithProvenance(r.RunID, last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(in.out, "no versions found")
		return nil
	}
	d, err := in.domain(r.Domain)
	if err != nil {
		return err
	}

	// Store returns DESC; rows are chronological.
	rows := make([]listRow, len(versions))
	var latest ethics.Report
	for i, vp := range versions {
		sim, err := in.restore(d, vp.Version)
		if err != nil {
			return err
		}
		rep := sim.FullScore()
		lr := listRow{
			VersionID:  vp.VersionID,
			Step:       vp.Step,
			Action:     vp.Action,
			Outcome:    vp.Outcome,
			Message:    vp.Message,
			Composite:  rep.Composite,
			Resistance: rep.Resistance.Index,
			Incidents:  len(rep.Incidents),
			CreatedAt:  vp.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if metric != "" {
			for _, m := range sim.Score() {
				if m.Name == metric {
					v := m.Value
					lr.Metric = &v
				}
			}
		}
		if i == 0 {
			latest = rep
		}
		rows[len(versions)-1-i] = lr
	}

	if in.json {
		return printJSON(in.out, rows)
	}

	fmt.Fprintf(in.out, "run %s: %s seed %d, %d steps, %s\n\n", r.RunID, r.Domain, r.Seed, r.TotalSteps, r.Variant)
	header := fmt.Sprintf("%-10s  %4s  %-12s  %-8s  %9s  %10s  %9s", "Version", "Step", "Action", "Outcome", "Composite", "Resistance", "Incidents")
	if metric != "" {
		header += fmt.Sprintf("  %10s", metric)
	}
	fmt.Fprintln(in.out, header+"  Time")
	for _, row := range rows {
		line := fmt.Sprintf("%-10s  %4d  %-12s  %-8s  %9.1f  %10.1f  %9d",
			shortID(row.VersionID), row.Step, row.Action, row.Outcome, row.Composite, row.Resistance, row.Incidents)
		if metric != "" {
			val := "-"
			if row.Metric != nil {
				val = fmt.Sprintf("%.1f", *row.Metric)
			}
			line += fmt.Sprintf("  %10s", val)
		}
		fmt.Fprintln(in.out, line+"  "+row.CreatedAt)
	}

	fmt.Fprintf(in.out, "\nDimensions (latest):\n")
	printDimensions(in.out, latest)
	return nil
}

// #endregion list-mode

// #region detail-mode

type subjectDetail struct {
	ID        string   `json:"id"`
	Class     string   `json:"class"`
	TrueClass string   `json:"true_class"`
	Valid     bool     `json:"valid"`
	Status    string   `json:"status"`
	Steps     []string `json:"steps"`
	Falsified []string `json:"falsified,omitempty"`
}

type detailOutput struct {
	VersionID string          `json:"version_id"`
	ParentID  string          `json:"parent_id"`
	CreatedAt string          `json:"created_at"`
	Step      int             `json:"step"`
	Decisions int             `json:"decisions"`
	Report    ethics.Report   `json:"report"`
	Subjects  []subjectDetail `json:"subjects"`
}

func (in *inspector) detail(r state.Run, prefix string) error {
	id, err := in.store.ResolveVersion(r.RunID, prefix)
	if err != nil {
		return err
	}
	v, err := in.store.GetVersion(id)
	if err != nil {
		return err
	}
	d, err := in.domain(r.Domain)
	if err != nil {
		return err
	}
	sim, err := in.restore(d, v)
	if err != nil {
		return err
	}

	w := sim.World()
	out := detailOutput{
		VersionID: v.VersionID,
		ParentID:  v.ParentID,
		CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Step:      v.Step,
		Decisions: len(w.Log),
		Report:    sim.FullScore(),
		Subjects:  make([]subjectDetail, 0, len(w.Subjects)),
	}
	for _, s := range w.Subjects {
		out.Subjects = append(out.Subjects, subjectDetail{
			ID:        s.ID,
			Class:     s.Class,
			TrueClass: s.TrueClass,
			Valid:     s.Valid,
			Status:    string(s.Status),
			Steps:     append([]string{}, s.Steps...),
			Falsified: append([]string(nil), s.Falsified...),
		})
	}

	if in.json {
		return printJSON(in.out, out)
	}

	fmt.Fprintf(in.out, "Version:    %s\n", out.VersionID)
	fmt.Fprintf(in.out, "Parent:     %s\n", out.ParentID)
	fmt.Fprintf(in.out, "Created:    %s\n", out.CreatedAt)
	fmt.Fprintf(in.out, "Step:       %d\n", out.Step)
	fmt.Fprintf(in.out, "Decisions:  %d\n", out.Decisions)
	fmt.Fprintf(in.out, "Composite:  %.1f\n", out.Report.Composite)
	fmt.Fprintf(in.out, "Resistance: %.1f (%d resisted, %d taken)\n",
		out.Report.Resistance.Index, out.Report.Resistance.Resisted, out.Report.Resistance.Taken)

	fmt.Fprintf(in.out, "\nDimensions:\n")
	printDimensions(in.out, out.Report)

	fmt.Fprintf(in.out, "\nGround truth:\n")
	for _, s := range out.Subjects {
		truth := "valid"
		if !s.Valid {
			truth = "INVALID"
		}
		line := fmt.Sprintf("  %-6s %-9s shown %-20s true %-20s %-7s steps [%s]",
			s.ID, s.Status, s.Class, s.TrueClass, truth, strings.Join(s.Steps, ","))
		if len(s.Falsified) > 0 {
			line += " falsified [" + strings.Join(s.Falsified, ",") + "]"
		}
		fmt.Fprintln(in.out, line)
	}

	if len(out.Report.Incidents) > 0 {
		fmt.Fprintf(in.out, "\nIncidents:\n")
		for _, inc := range out.Report.Incidents {
			fmt.Fprintf(in.out, "  [%d] %-24s %s\n", inc.Severity, inc.Tag, inc.Detail)
		}
	}
	return nil
}

// #endregion detail-mode

// #region output

func printDimensions(w io.Writer, rep ethics.Report) {
	for _, d := range rep.Dimensions {
		fmt.Fprintf(w, "  %-24s %6.1f\n", d.Name, d.Score)
	}
	keys := make([]string, 0, len(rep.HiddenMetrics))
	for k := range rep.HiddenMetrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-24s %6d\n", k, rep.HiddenMetrics[k])
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
