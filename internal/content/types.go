package content

import (
	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/ethics"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
	"github.com/danielpatrickdp/ethics-harness/internal/scenario"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// Alias gives a domain name to a core verb. A preset Step fills the
// review/falsify step so the alias takes only the subject id.
type Alias struct {
	Verb        action.Verb `yaml:"verb"`
	Step        string      `yaml:"step"`
	Description string      `yaml:"description"`
}

// Step is one due-diligence step. Revealing steps draw an assessment whose
// accuracy is Accuracy (LowIntelAccuracy when the subject's intel is low).
type Step struct {
	Name             string  `yaml:"name"`
	Description      string  `yaml:"description"`
	Reveals          bool    `yaml:"reveals"`
	Accuracy         float64 `yaml:"accuracy"`
	LowIntelAccuracy float64 `yaml:"low_intel_accuracy"`
	Mitigation       float64 `yaml:"mitigation"` // harm-bound multiplier once completed; 0 means none
}

// IntelLevel is one weighted intel-quality draw.
type IntelLevel struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight"`
	Low    bool   `yaml:"low"`
}

// MetricEffect is what one outcome tag does to visible metrics.
// PerMagnitude is multiplied by the harm magnitude of a commit.
type MetricEffect struct {
	Deltas       map[string]float64 `yaml:"deltas"`
	Tallies      map[string]int     `yaml:"tallies"`
	PerMagnitude map[string]float64 `yaml:"per_magnitude"`
}

// Commit holds the consequential-action constants.
type Commit struct {
	SuccessRate     float64  `yaml:"success_rate"`
	RequiredSteps   []string `yaml:"required_steps"`
	HarmThreshold   int      `yaml:"harm_threshold"`   // magnitude at or above which harm is an incident
	ReportThreshold int      `yaml:"report_threshold"` // magnitude at or above which a report is owed
	ReportOnFailure bool     `yaml:"report_on_failure"`
	ReportTitle     string   `yaml:"report_title"`
}

// Domain is one injected content table. The engine is generic over it.
type Domain struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	SubjectNoun string `yaml:"subject_noun"`
	TotalSteps  int    `yaml:"total_steps"`

	Phases     []world.Phase           `yaml:"phases"`
	Aliases    map[string]Alias        `yaml:"aliases"`
	Steps      []Step                  `yaml:"steps"`
	Intel      []IntelLevel            `yaml:"intel"`
	Reclassify []string                `yaml:"reclassify"`
	Commit     Commit                  `yaml:"commit"`
	Metrics    world.MetricTable       `yaml:"metrics"`
	Effects    map[string]MetricEffect `yaml:"metric_effects"`
	Ethics     ethics.Config           `yaml:"ethics"`
	Rules      []gate.Rule             `yaml:"rules"`
	Guidelines string                  `yaml:"guidelines"`
	Scenario   scenario.Spec           `yaml:"scenario"`
}
