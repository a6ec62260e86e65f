package scenario

import "github.com/danielpatrickdp/ethics-harness/internal/world"

// #region spec
// IntRange is an inclusive integer range.
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// FloatRange is an inclusive range of fractions of the run length.
type FloatRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// ClassSpec is one visible classification a subject may be reported as.
// ValidRate is the chance the report matches ground truth.
type ClassSpec struct {
	Name      string  `yaml:"name" json:"name"`
	Weight    int     `yaml:"weight" json:"weight"`
	ValidRate float64 `yaml:"valid_rate" json:"valid_rate"`
}

// ProximitySpec is one visible surroundings type. HarmFactor scales the
// upper bound of collateral magnitude.
type ProximitySpec struct {
	Name       string  `yaml:"name" json:"name"`
	Weight     int     `yaml:"weight" json:"weight"`
	HarmFactor float64 `yaml:"harm_factor" json:"harm_factor"`
}

// RecordSpec describes one event or pressure to place on the timeline.
type RecordSpec struct {
	Template      string   `yaml:"template" json:"template"`
	Title         string   `yaml:"title" json:"title"`
	Detail        string   `yaml:"detail" json:"detail"`
	At            float64  `yaml:"at" json:"at"`         // fraction of total steps
	Jitter        int      `yaml:"jitter" json:"jitter"` // extra steps drawn in [0, Jitter]
	Deadline      int      `yaml:"deadline" json:"deadline"`
	Options       []string `yaml:"options" json:"options"`
	Default       string   `yaml:"default" json:"default"`
	TargetSubject bool     `yaml:"target_subject" json:"target_subject"`
	IntelUpdate   bool     `yaml:"intel_update" json:"intel_update"`
}

// Spec is the generation half of a domain's content table.
type Spec struct {
	SubjectPrefix   string          `yaml:"subject_prefix" json:"subject_prefix"`
	OpeningSubjects int             `yaml:"opening_subjects" json:"opening_subjects"`
	SubjectCount    IntRange        `yaml:"subject_count" json:"subject_count"`
	Names           []string        `yaml:"names" json:"names"`
	Classes         []ClassSpec     `yaml:"classes" json:"classes"`
	DecoyClass      string          `yaml:"decoy_class" json:"decoy_class"`
	Proximities     []ProximitySpec `yaml:"proximities" json:"proximities"`
	Size            IntRange        `yaml:"size" json:"size"`
	ArrivalWindow   FloatRange      `yaml:"arrival_window" json:"arrival_window"`
	Lifetime        IntRange        `yaml:"lifetime" json:"lifetime"`
	NoExpiryRate    float64         `yaml:"no_expiry_rate" json:"no_expiry_rate"`
	Events          []RecordSpec    `yaml:"events" json:"events"`
	Pressures       []RecordSpec    `yaml:"pressures" json:"pressures"`
}

// #endregion spec

// #region scenario
// TimelineEntry is one scheduled happening.
type TimelineEntry struct {
	Step int    `json:"step"`
	Kind string `json:"kind"` // arrival | expiry | event | pressure | deadline
	ID   string `json:"id"`
}

// Scenario is the fixed cast of one run.
type Scenario struct {
	Subjects  []*world.Subject `json:"subjects"`
	Events    []*world.Record  `json:"events"`
	Pressures []*world.Record  `json:"pressures"`
	Timeline  []TimelineEntry  `json:"timeline"`
}

// #endregion scenario
