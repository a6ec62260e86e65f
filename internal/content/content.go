package content

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/ethics"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
	"github.com/danielpatrickdp/ethics-harness/internal/scenario"
)

//go:embed domains/*.yaml
var domainFS embed.FS

//go:embed domain.schema.json
var schemaText string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("domain.schema.json", schemaText)
	})
	return schema, schemaErr
}

// #region load
// Names lists the embedded domains in sorted order.
func Names() []string {
	entries, err := domainFS.ReadDir("domains")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Load parses and validates one embedded domain.
func Load(name string) (*Domain, error) {
	raw, err := domainFS.ReadFile(path.Join("domains", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown domain %q (have %s)", name, strings.Join(Names(), ", "))
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("domain %s: %w", name, err)
	}
	return d, nil
}

// LoadFile parses and validates a domain table from disk.
func LoadFile(p string) (*Domain, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return d, nil
}

// Parse checks raw YAML against the domain schema, decodes it and runs the
// cross-reference checks the schema cannot express.
func Parse(raw []byte) (*Domain, error) {
	if err := ValidateSchema(raw); err != nil {
		return nil, err
	}
	var d Domain
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ValidateSchema validates raw YAML against the embedded JSON schema.
func ValidateSchema(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	// Round-trip through JSON so the validator sees JSON value types.
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("yaml to json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("yaml to json: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// #endregion load

// #region validate
// Validate runs the checks that span sections of the table.
func (d *Domain) Validate() error {
	steps := map[string]bool{}
	for _, s := range d.Steps {
		if steps[s.Name] {
			return fmt.Errorf("duplicate step %q", s.Name)
		}
		steps[s.Name] = true
	}

	for i, p := range d.Phases {
		if p.End <= p.Start {
			return fmt.Errorf("phase %q: end %d not after start %d", p.Name, p.End, p.Start)
		}
		if i > 0 && p.Start != d.Phases[i-1].End {
			return fmt.Errorf("phase %q does not start where %q ends", p.Name, d.Phases[i-1].Name)
		}
	}

	for name, a := range d.Aliases {
		if _, err := action.ParseVerb(name); err == nil {
			return fmt.Errorf("alias %q shadows a verb", name)
		}
		if a.Step != "" {
			if a.Verb != action.VerbReview && a.Verb != action.VerbFalsify {
				return fmt.Errorf("alias %q: step preset only applies to review and falsify", name)
			}
			if !steps[a.Step] {
				return fmt.Errorf("alias %q: unknown step %q", name, a.Step)
			}
		}
	}

	for _, s := range d.Commit.RequiredSteps {
		if !steps[s] {
			return fmt.Errorf("commit: unknown required step %q", s)
		}
	}
	if d.Commit.ReportTitle == "" && (d.Commit.ReportThreshold > 0 || d.Commit.ReportOnFailure) {
		return fmt.Errorf("commit: reports enabled without report_title")
	}

	if err := d.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	for tag, e := range d.Effects {
		for _, m := range [...]map[string]float64{e.Deltas, e.PerMagnitude} {
			for name := range m {
				if !d.Metrics.Has(name) {
					return fmt.Errorf("metric effect %q: unknown metric %q", tag, name)
				}
			}
		}
	}

	if err := ethics.Validate(d.Ethics); err != nil {
		return fmt.Errorf("ethics: %w", err)
	}
	if _, err := gate.New(d.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if err := d.Scenario.Validate(); err != nil {
		return err
	}
	for _, c := range d.Reclassify {
		if c == "" {
			return fmt.Errorf("reclassify: empty class")
		}
	}
	return nil
}

// #endregion validate

// #region lookups
// Step returns the named due-diligence step.
func (d *Domain) Step(name string) (Step, bool) {
	for _, s := range d.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// StepNames returns step names in table order.
func (d *Domain) StepNames() []string {
	out := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		out[i] = s.Name
	}
	return out
}

// LowIntel reports whether an intel level counts as low.
func (d *Domain) LowIntel(level string) bool {
	for _, l := range d.Intel {
		if l.Name == level {
			return l.Low
		}
	}
	return false
}

// RecordSpec finds the generation entry for an event or pressure template.
func (d *Domain) RecordSpec(template string) (scenario.RecordSpec, bool) {
	for _, group := range [][]scenario.RecordSpec{d.Scenario.Events, d.Scenario.Pressures} {
		for _, r := range group {
			if r.Template == template {
				return r, true
			}
		}
	}
	return scenario.RecordSpec{}, false
}

// CanReclassify reports whether class is a legal reclassify target.
func (d *Domain) CanReclassify(class string) bool {
	return slices.Contains(d.Reclassify, class)
}

// AliasNames returns alias names sorted.
func (d *Domain) AliasNames() []string {
	out := make([]string, 0, len(d.Aliases))
	for name := range d.Aliases {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve turns a verb or alias name plus positional args into an Action.
func (d *Domain) Resolve(name string, args []string) (action.Action, error) {
	if v, err := action.ParseVerb(name); err == nil {
		return action.Parse(v, args)
	}
	a, ok := d.Aliases[name]
	if !ok {
		return action.Action{}, fmt.Errorf("unknown action %q", name)
	}
	if a.Step != "" {
		if len(args) != 1 {
			return action.Action{}, fmt.Errorf("%s expects <subject-id>", name)
		}
		return action.Parse(a.Verb, []string{args[0], a.Step})
	}
	return action.Parse(a.Verb, args)
}

// #endregion lookups
