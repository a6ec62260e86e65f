package world

import "slices"

// #region clock
// Phase names a half-open step range [Start, End).
type Phase struct {
	Start int    `yaml:"start" json:"start"`
	End   int    `yaml:"end" json:"end"`
	Name  string `yaml:"name" json:"name"`
}

// Clock is the scenario position. Only the tick engine moves it.
type Clock struct {
	Step       int  `json:"step"`
	TotalSteps int  `json:"total_steps"`
	Completed  bool `json:"completed"`
}

// PhaseAt returns the phase containing step; past the table it is the last phase.
func PhaseAt(phases []Phase, step int) string {
	for _, p := range phases {
		if step >= p.Start && step < p.End {
			return p.Name
		}
	}
	if len(phases) == 0 {
		return ""
	}
	return phases[len(phases)-1].Name
}

// #endregion clock

// #region subject
// Status is the lifecycle position of a Subject.
type Status string

const (
	StatusPending             Status = "pending"
	StatusActive              Status = "active"
	StatusResolvedFavorable   Status = "resolved_favorable"
	StatusResolvedUnfavorable Status = "resolved_unfavorable"
	StatusExpired             Status = "expired"
	StatusRemoved             Status = "removed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusResolvedFavorable, StatusResolvedUnfavorable, StatusExpired, StatusRemoved:
		return true
	}
	return false
}

// StepSet is a sorted set of completed due-diligence steps.
type StepSet []string

// Has reports membership.
func (s StepSet) Has(step string) bool {
	_, ok := slices.BinarySearch(s, step)
	return ok
}

// Add inserts step, keeping the set sorted. Reports false if already present.
func (s *StepSet) Add(step string) bool {
	i, ok := slices.BinarySearch(*s, step)
	if ok {
		return false
	}
	*s = slices.Insert(*s, i, step)
	return true
}

// Outcome is the result of the consequential action on a Subject.
type Outcome struct {
	Success   bool `json:"success"`
	Magnitude int  `json:"magnitude"`
	Step      int  `json:"step"`
}

// Subject is the entity being acted upon. TrueClass, Valid and Falsified are
// hidden ground truth: persisted, never projected into a View.
type Subject struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Class      string `json:"class"`
	Proximity  string `json:"proximity"`
	Size       int    `json:"size"`
	Intel      string `json:"intel"`
	Assessment string `json:"assessment"`

	TrueClass string  `json:"true_class"`
	Valid     bool    `json:"valid"`
	Falsified StepSet `json:"falsified"`

	Status      Status   `json:"status"`
	ArrivalStep int      `json:"arrival_step"`
	ExpiryStep  *int     `json:"expiry_step"`
	Steps       StepSet  `json:"steps"`
	Outcome     *Outcome `json:"outcome"`
}

// #endregion subject

// #region record
// RecordKind distinguishes the three record families.
type RecordKind string

const (
	KindEvent    RecordKind = "event"
	KindPressure RecordKind = "pressure"
	KindReport   RecordKind = "report"
)

// Record is an event, pressure or report. Created once, resolved once.
type Record struct {
	ID             string     `json:"id"`
	Kind           RecordKind `json:"kind"`
	Template       string     `json:"template"`
	Title          string     `json:"title"`
	Detail         string     `json:"detail"`
	SubjectID      string     `json:"subject_id"`
	ActivationStep int        `json:"activation_step"`
	DeadlineStep   *int       `json:"deadline_step"`
	Options        []string   `json:"options"`
	DefaultOption  string     `json:"default_option"`

	Active       bool   `json:"active"`
	Resolved     bool   `json:"resolved"`
	Disposition  string `json:"disposition"`
	ResolvedStep int    `json:"resolved_step"`
}

// Open reports whether the record is waiting for a response.
func (r *Record) Open() bool {
	return r.Active && !r.Resolved
}

// HasOption reports whether o is a legal disposition.
func (r *Record) HasOption(o string) bool {
	return slices.Contains(r.Options, o)
}

// #endregion record

// #region decision-log
// Decision is one decision-log entry.
type Decision struct {
	Step   int               `json:"step"`
	Action string            `json:"action"`
	Fields map[string]string `json:"fields"`
}

// DecisionLog is append-only.
type DecisionLog []Decision

// #endregion decision-log
