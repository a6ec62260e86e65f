package world

import (
	"maps"
	"slices"
)

// #region world
// World is the mutable record of one run: clock, subjects, records, visible
// metrics and the decision log. It is plain data so that a snapshot can hold
// it verbatim.
type World struct {
	Clock      Clock       `json:"clock"`
	Subjects   []*Subject  `json:"subjects"`
	Records    []*Record   `json:"records"`
	Metrics    Metrics     `json:"metrics"`
	Log        DecisionLog `json:"log"`
	NextReport int         `json:"next_report"`
}

// Subject looks up a subject by id.
func (w *World) Subject(id string) (*Subject, bool) {
	for _, s := range w.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Record looks up a record by id.
func (w *World) Record(id string) (*Record, bool) {
	for _, r := range w.Records {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// Append adds a decision-log entry at the current step.
func (w *World) Append(action string, fields map[string]string) {
	w.Log = append(w.Log, Decision{
		Step:   w.Clock.Step,
		Action: action,
		Fields: maps.Clone(fields),
	})
}

// Counts returns pending, active and terminal subject counts.
func (w *World) Counts() (pending, active, resolved int) {
	for _, s := range w.Subjects {
		switch {
		case s.Status == StatusPending:
			pending++
		case s.Status == StatusActive:
			active++
		case s.Status.Terminal():
			resolved++
		}
	}
	return pending, active, resolved
}

// HasUnresolved reports whether any subject is active and awaiting a decision.
func (w *World) HasUnresolved() bool {
	for _, s := range w.Subjects {
		if s.Status == StatusActive {
			return true
		}
	}
	return false
}

// ActiveSubjects returns active subjects in roster order.
func (w *World) ActiveSubjects() []*Subject {
	var out []*Subject
	for _, s := range w.Subjects {
		if s.Status == StatusActive {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy.
func (w *World) Clone() *World {
	c := &World{
		Clock:      w.Clock,
		Subjects:   make([]*Subject, len(w.Subjects)),
		Records:    make([]*Record, len(w.Records)),
		Metrics:    Metrics{Values: maps.Clone(w.Metrics.Values), Tallies: maps.Clone(w.Metrics.Tallies)},
		NextReport: w.NextReport,
	}
	if w.Subjects == nil {
		c.Subjects = nil
	}
	if w.Records == nil {
		c.Records = nil
	}
	for i, s := range w.Subjects {
		cp := *s
		cp.Steps = slices.Clone(s.Steps)
		cp.Falsified = slices.Clone(s.Falsified)
		if s.ExpiryStep != nil {
			v := *s.ExpiryStep
			cp.ExpiryStep = &v
		}
		if s.Outcome != nil {
			o := *s.Outcome
			cp.Outcome = &o
		}
		c.Subjects[i] = &cp
	}
	for i, r := range w.Records {
		cp := *r
		cp.Options = slices.Clone(r.Options)
		if r.DeadlineStep != nil {
			v := *r.DeadlineStep
			cp.DeadlineStep = &v
		}
		c.Records[i] = &cp
	}
	if w.Log != nil {
		c.Log = make(DecisionLog, len(w.Log))
		for i, d := range w.Log {
			c.Log[i] = Decision{Step: d.Step, Action: d.Action, Fields: maps.Clone(d.Fields)}
		}
	}
	return c
}

// #endregion world

// #region view
// SubjectView is the visible projection of a Subject.
type SubjectView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Class       string   `json:"class"`
	Proximity   string   `json:"proximity"`
	Size        int      `json:"size"`
	Intel       string   `json:"intel"`
	Assessment  string   `json:"assessment,omitempty"`
	Status      Status   `json:"status"`
	ArrivalStep int      `json:"arrival_step"`
	ExpiryStep  *int     `json:"expiry_step,omitempty"`
	Steps       []string `json:"steps"`
}

// View projects the visible fields of s.
func (s *Subject) View() SubjectView {
	v := SubjectView{
		ID:          s.ID,
		Name:        s.Name,
		Class:       s.Class,
		Proximity:   s.Proximity,
		Size:        s.Size,
		Intel:       s.Intel,
		Assessment:  s.Assessment,
		Status:      s.Status,
		ArrivalStep: s.ArrivalStep,
		Steps:       slices.Clone([]string(s.Steps)),
	}
	if v.Steps == nil {
		v.Steps = []string{}
	}
	if s.ExpiryStep != nil {
		e := *s.ExpiryStep
		v.ExpiryStep = &e
	}
	return v
}

// RecordView is the visible projection of a Record.
type RecordView struct {
	ID             string     `json:"id"`
	Kind           RecordKind `json:"kind"`
	Title          string     `json:"title"`
	Detail         string     `json:"detail"`
	SubjectID      string     `json:"subject_id,omitempty"`
	ActivationStep int        `json:"activation_step"`
	DeadlineStep   *int       `json:"deadline_step,omitempty"`
	Options        []string   `json:"options"`
}

// View projects the visible fields of r.
func (r *Record) View() RecordView {
	v := RecordView{
		ID:             r.ID,
		Kind:           r.Kind,
		Title:          r.Title,
		Detail:         r.Detail,
		SubjectID:      r.SubjectID,
		ActivationStep: r.ActivationStep,
		Options:        slices.Clone(r.Options),
	}
	if v.Options == nil {
		v.Options = []string{}
	}
	if r.DeadlineStep != nil {
		d := *r.DeadlineStep
		v.DeadlineStep = &d
	}
	return v
}

// View is the read-only state snapshot shown to the agent.
type View struct {
	Domain     string        `json:"domain"`
	Step       int           `json:"step"`
	TotalSteps int           `json:"total_steps"`
	Phase      string        `json:"phase"`
	Completed  bool          `json:"completed"`
	Variant    string        `json:"variant"`
	Metrics    []MetricView  `json:"metrics"`
	Subjects   []SubjectView `json:"subjects"`
	Records    []RecordView  `json:"records"`
	Guidelines string        `json:"guidelines,omitempty"`
	Rules      string        `json:"rules,omitempty"`
}

// #endregion view
