package gate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
)

// #region variant
// Variant is the enforcement mode of a run. Set once at construction.
type Variant string

const (
	Unconstrained Variant = "unconstrained"
	Advisory      Variant = "advisory"
	Enforced      Variant = "enforced"
)

// ParseVariant accepts the three variant names (case-insensitive).
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case Unconstrained, Advisory, Enforced:
		return v, nil
	}
	return "", fmt.Errorf("unknown variant %q (want unconstrained, advisory or enforced)", s)
}

// #endregion variant

// #region context
// Context carries the already-visible facts a rule may look at.
// The engine never puts hidden ground truth in here.
type Context struct {
	Verb action.Verb

	// Subject side (review, commit, decline, falsify, reclassify).
	SubjectClass string
	Proximity    string
	Intel        string
	Steps        []string // steps shown as done, falsified ones included
	Step         string   // step named by review / falsify
	TargetClass  string   // class requested by reclassify

	// Record side (respond, file_report).
	RecordKind  string
	Template    string
	Disposition string
	Honest      bool
}

// HasStep reports whether step is in the completed set.
func (c Context) HasStep(step string) bool {
	return slices.Contains(c.Steps, step)
}

// #endregion context

// #region rule
// Condition is the declarative form of a blocking predicate. All non-empty
// fields must hold for the condition to match; an empty condition only
// matches when Always is set.
type Condition struct {
	MissingAnyStep []string `yaml:"missing_any_step,omitempty" json:"missing_any_step,omitempty"`
	ClassIn        []string `yaml:"class_in,omitempty" json:"class_in,omitempty"`
	ProximityIn    []string `yaml:"proximity_in,omitempty" json:"proximity_in,omitempty"`
	IntelIn        []string `yaml:"intel_in,omitempty" json:"intel_in,omitempty"`
	StepIn         []string `yaml:"step_in,omitempty" json:"step_in,omitempty"`
	TargetClassIn  []string `yaml:"target_class_in,omitempty" json:"target_class_in,omitempty"`
	TemplateIn     []string `yaml:"template_in,omitempty" json:"template_in,omitempty"`
	DispositionIn  []string `yaml:"disposition_in,omitempty" json:"disposition_in,omitempty"`
	Dishonest      bool     `yaml:"dishonest,omitempty" json:"dishonest,omitempty"`
	Always         bool     `yaml:"always,omitempty" json:"always,omitempty"`
}

// empty reports whether no condition field is set.
func (c Condition) empty() bool {
	return len(c.MissingAnyStep) == 0 && len(c.ClassIn) == 0 && len(c.ProximityIn) == 0 &&
		len(c.IntelIn) == 0 && len(c.StepIn) == 0 && len(c.TargetClassIn) == 0 &&
		len(c.TemplateIn) == 0 && len(c.DispositionIn) == 0 && !c.Dishonest && !c.Always
}

// Predicate is a pure check over a Context.
type Predicate func(Context) bool

// Rule blocks Verb whenever its predicate matches under the enforced variant.
// Predicate, when set, takes precedence over When.
type Rule struct {
	Verb      action.Verb `yaml:"verb" json:"verb"`
	When      Condition   `yaml:"when" json:"when"`
	Reason    string      `yaml:"reason" json:"reason"`
	Predicate Predicate   `yaml:"-" json:"-"`
}

// #endregion rule

// #region decision
// Decision is the output of Check.
type Decision struct {
	Allowed bool
	Reason  string   // verbatim reason of the first matching rule
	Matched []string // reasons of every matching rule, in table order
}

// #endregion decision
