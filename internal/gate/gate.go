package gate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
)

// #region gate
// Gate decides allow or block for a proposed action.
type Gate struct {
	rules  []Rule
	preds  []Predicate
	byVerb [action.VerbCount][]int
}

// New compiles a rule table. Every rule must name a declared verb, carry a
// reason, and have either a Predicate or a non-empty condition.
func New(rules []Rule) (*Gate, error) {
	g := &Gate{
		rules: make([]Rule, len(rules)),
		preds: make([]Predicate, len(rules)),
	}
	copy(g.rules, rules)

	for i, r := range g.rules {
		if !r.Verb.Valid() {
			return nil, fmt.Errorf("rule %d: invalid verb %d", i, int(r.Verb))
		}
		if strings.TrimSpace(r.Reason) == "" {
			return nil, fmt.Errorf("rule %d (%s): empty reason", i, r.Verb)
		}
		pred := r.Predicate
		if pred == nil {
			if r.When.empty() {
				return nil, fmt.Errorf("rule %d (%s): empty condition", i, r.Verb)
			}
			pred = Compile(r.When)
		}
		g.preds[i] = pred
		g.byVerb[r.Verb] = append(g.byVerb[r.Verb], i)
	}
	return g, nil
}

// Check evaluates ctx under variant. Unconstrained and advisory always allow.
func (g *Gate) Check(variant Variant, ctx Context) Decision {
	if variant != Enforced || !ctx.Verb.Valid() {
		return Decision{Allowed: true}
	}

	var matched []string
	for _, i := range g.byVerb[ctx.Verb] {
		if g.preds[i](ctx) {
			matched = append(matched, g.rules[i].Reason)
		}
	}
	if len(matched) == 0 {
		return Decision{Allowed: true}
	}
	return Decision{
		Allowed: false,
		Reason:  matched[0],
		Matched: matched,
	}
}

// Blockable reports whether any rule targets v.
func (g *Gate) Blockable(v action.Verb) bool {
	return v.Valid() && len(g.byVerb[v]) > 0
}

// Rules returns a copy of the rule table.
func (g *Gate) Rules() []Rule {
	return slices.Clone(g.rules)
}

// Describe renders the rule list shown to agents under the enforced variant.
func (g *Gate) Describe() string {
	if len(g.rules) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range g.rules {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, r.Verb, r.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}

// #endregion gate

// #region compile
// Compile turns a declarative Condition into a Predicate.
func Compile(c Condition) Predicate {
	var checks []Predicate

	if len(c.MissingAnyStep) > 0 {
		steps := slices.Clone(c.MissingAnyStep)
		checks = append(checks, func(ctx Context) bool {
			for _, s := range steps {
				if !ctx.HasStep(s) {
					return true
				}
			}
			return false
		})
	}
	if len(c.ClassIn) > 0 {
		checks = append(checks, in(c.ClassIn, func(ctx Context) string { return ctx.SubjectClass }))
	}
	if len(c.ProximityIn) > 0 {
		checks = append(checks, in(c.ProximityIn, func(ctx Context) string { return ctx.Proximity }))
	}
	if len(c.IntelIn) > 0 {
		checks = append(checks, in(c.IntelIn, func(ctx Context) string { return ctx.Intel }))
	}
	if len(c.StepIn) > 0 {
		checks = append(checks, in(c.StepIn, func(ctx Context) string { return ctx.Step }))
	}
	if len(c.TargetClassIn) > 0 {
		checks = append(checks, in(c.TargetClassIn, func(ctx Context) string { return ctx.TargetClass }))
	}
	if len(c.TemplateIn) > 0 {
		checks = append(checks, in(c.TemplateIn, func(ctx Context) string { return ctx.Template }))
	}
	if len(c.DispositionIn) > 0 {
		checks = append(checks, in(c.DispositionIn, func(ctx Context) string { return ctx.Disposition }))
	}
	if c.Dishonest {
		checks = append(checks, func(ctx Context) bool { return !ctx.Honest })
	}

	if len(checks) == 0 {
		always := c.Always
		return func(Context) bool { return always }
	}
	return func(ctx Context) bool {
		for _, check := range checks {
			if !check(ctx) {
				return false
			}
		}
		return true
	}
}

func in(set []string, field func(Context) string) Predicate {
	set = slices.Clone(set)
	return func(ctx Context) bool {
		return slices.Contains(set, field(ctx))
	}
}

// #endregion compile
