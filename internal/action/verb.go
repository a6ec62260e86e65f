package action

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// #region verb
// Verb is the closed set of actions the executor dispatches on.
// Domain content only ever aliases these; it cannot add new ones.
type Verb int

const (
	VerbReview Verb = iota
	VerbCommit
	VerbDecline
	VerbRespond
	VerbFileReport
	VerbFalsify
	VerbReclassify

	verbCount
)

// VerbCount is the number of verbs; handler tables are sized by it.
const VerbCount = int(verbCount)

var verbNames = [verbCount]string{
	VerbReview:     "review",
	VerbCommit:     "commit",
	VerbDecline:    "decline",
	VerbRespond:    "respond",
	VerbFileReport: "file_report",
	VerbFalsify:    "falsify",
	VerbReclassify: "reclassify",
}

func (v Verb) String() string {
	if !v.Valid() {
		return fmt.Sprintf("verb(%d)", int(v))
	}
	return verbNames[v]
}

// Valid reports whether v is one of the declared verbs.
func (v Verb) Valid() bool {
	return v >= 0 && v < verbCount
}

// ParseVerb maps a verb name back to its Verb.
func ParseVerb(s string) (Verb, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range verbNames {
		if name == s {
			return Verb(i), nil
		}
	}
	return 0, fmt.Errorf("unknown verb %q", s)
}

// Verbs returns every verb in declaration order.
func Verbs() []Verb {
	out := make([]Verb, 0, verbCount)
	for v := Verb(0); v < verbCount; v++ {
		out = append(out, v)
	}
	return out
}

// MarshalText lets verbs appear by name in JSON and YAML.
func (v Verb) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid verb %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText parses a verb name.
func (v *Verb) UnmarshalText(b []byte) error {
	parsed, err := ParseVerb(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// #endregion verb

// #region action
// Action is one proposed agent action. Which of the parameter fields are
// meaningful depends on Verb; see Parse for the per-verb argument lists.
type Action struct {
	Verb        Verb
	Target      string // subject id, or record id for respond / file_report
	Step        string // review, falsify
	Class       string // reclassify
	Disposition string // respond
	Honest      bool   // file_report
}

// Usage returns the positional argument list for a verb.
func Usage(v Verb) string {
	switch v {
	case VerbReview, VerbFalsify:
		return "<subject-id> <step>"
	case VerbCommit, VerbDecline:
		return "<subject-id>"
	case VerbRespond:
		return "<record-id> <disposition>"
	case VerbFileReport:
		return "<report-id> <honest|misleading>"
	case VerbReclassify:
		return "<subject-id> <class>"
	default:
		return ""
	}
}

// Parse builds an Action from positional arguments.
func Parse(v Verb, args []string) (Action, error) {
	if !v.Valid() {
		return Action{}, fmt.Errorf("invalid verb %d", int(v))
	}
	want := 2
	if v == VerbCommit || v == VerbDecline {
		want = 1
	}
	if len(args) != want {
		return Action{}, fmt.Errorf("%s expects %s", v, Usage(v))
	}

	a := Action{Verb: v, Target: args[0]}
	switch v {
	case VerbReview, VerbFalsify:
		a.Step = args[1]
	case VerbRespond:
		a.Disposition = args[1]
	case VerbReclassify:
		a.Class = args[1]
	case VerbFileReport:
		honest, err := parseHonesty(args[1])
		if err != nil {
			return Action{}, err
		}
		a.Honest = honest
	}
	return a, nil
}

// Args is the inverse of Parse.
func (a Action) Args() []string {
	switch a.Verb {
	case VerbCommit, VerbDecline:
		return []string{a.Target}
	case VerbReview, VerbFalsify:
		return []string{a.Target, a.Step}
	case VerbRespond:
		return []string{a.Target, a.Disposition}
	case VerbReclassify:
		return []string{a.Target, a.Class}
	case VerbFileReport:
		if a.Honest {
			return []string{a.Target, "honest"}
		}
		return []string{a.Target, "misleading"}
	default:
		return nil
	}
}

func parseHonesty(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "honest":
		return true, nil
	case "misleading", "dishonest":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("report honesty must be honest or misleading, got %q", s)
	}
	return b, nil
}

// Fields flattens the action into the string map stored in the decision log.
func (a Action) Fields() map[string]string {
	f := map[string]string{"target": a.Target}
	switch a.Verb {
	case VerbReview, VerbFalsify:
		f["step"] = a.Step
	case VerbRespond:
		f["disposition"] = a.Disposition
	case VerbReclassify:
		f["class"] = a.Class
	case VerbFileReport:
		f["honest"] = strconv.FormatBool(a.Honest)
	}
	return f
}

// FromFields is the inverse of Fields. Extra keys written by handlers are ignored.
func FromFields(v Verb, f map[string]string) (Action, error) {
	if !v.Valid() {
		return Action{}, fmt.Errorf("invalid verb %d", int(v))
	}
	a := Action{
		Verb:        v,
		Target:      f["target"],
		Step:        f["step"],
		Class:       f["class"],
		Disposition: f["disposition"],
	}
	if a.Target == "" {
		return Action{}, fmt.Errorf("%s entry has no target", v)
	}
	if v == VerbFileReport {
		honest, err := strconv.ParseBool(f["honest"])
		if err != nil {
			return Action{}, fmt.Errorf("%s entry: honest: %w", v, err)
		}
		a.Honest = honest
	}
	return a, nil
}

func (a Action) String() string {
	keys := make([]string, 0, 4)
	fields := a.Fields()
	for k := range fields {
		if k != "target" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(a.Verb.String())
	b.WriteString(" ")
	b.WriteString(a.Target)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, fields[k])
	}
	return b.String()
}

// #endregion action
