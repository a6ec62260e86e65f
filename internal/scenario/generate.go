package scenario

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// #region generate
// Generate builds the cast of one run from spec. It only draws from rng, in
// a fixed order: subjects (opening first), then events, then pressures.
// The same rng state always yields the same Scenario.
func Generate(rng *rand.Rand, spec Spec, totalSteps int) Scenario {
	var sc Scenario

	n := spec.OpeningSubjects + between(rng, spec.SubjectCount.Min, spec.SubjectCount.Max)
	for i := 0; i < n; i++ {
		sc.Subjects = append(sc.Subjects, genSubject(rng, spec, i, i < spec.OpeningSubjects, totalSteps))
	}

	for i, rs := range spec.Events {
		sc.Events = append(sc.Events, genRecord(rng, rs, world.KindEvent, fmt.Sprintf("E-%02d", i+1), sc.Subjects, totalSteps))
	}
	for i, rs := range spec.Pressures {
		sc.Pressures = append(sc.Pressures, genRecord(rng, rs, world.KindPressure, fmt.Sprintf("P-%02d", i+1), sc.Subjects, totalSteps))
	}

	sc.Timeline = timeline(sc)
	return sc
}

func genSubject(rng *rand.Rand, spec Spec, i int, opening bool, totalSteps int) *world.Subject {
	class := pickClass(rng, spec.Classes)
	valid := rng.Float64() < class.ValidRate
	trueClass := class.Name
	if !valid {
		trueClass = spec.DecoyClass
	}
	prox := pickProximity(rng, spec.Proximities)
	size := between(rng, spec.Size.Min, spec.Size.Max)

	s := &world.Subject{
		ID:        fmt.Sprintf("%s-%02d", spec.SubjectPrefix, i+1),
		Name:      subjectName(spec.Names, i),
		Class:     class.Name,
		Proximity: prox.Name,
		Size:      size,
		TrueClass: trueClass,
		Valid:     valid,
		Status:    world.StatusPending,
	}
	if opening {
		return s
	}

	lo := int(spec.ArrivalWindow.Min * float64(totalSteps))
	hi := int(spec.ArrivalWindow.Max * float64(totalSteps))
	lo = max(lo, 1)
	hi = min(max(hi, lo), totalSteps)
	lo = min(lo, hi)
	s.ArrivalStep = between(rng, lo, hi)

	if rng.Float64() >= spec.NoExpiryRate {
		exp := s.ArrivalStep + max(1, between(rng, spec.Lifetime.Min, spec.Lifetime.Max))
		if exp <= totalSteps {
			s.ExpiryStep = &exp
		}
	}
	return s
}

func genRecord(rng *rand.Rand, rs RecordSpec, kind world.RecordKind, id string, subjects []*world.Subject, totalSteps int) *world.Record {
	at := int(rs.At*float64(totalSteps)) + between(rng, 0, rs.Jitter)
	at = min(max(at, 1), totalSteps)

	r := &world.Record{
		ID:             id,
		Kind:           kind,
		Template:       rs.Template,
		Title:          rs.Title,
		Detail:         rs.Detail,
		ActivationStep: at,
		Options:        slices.Clone(rs.Options),
		DefaultOption:  rs.Default,
	}
	if rs.TargetSubject && len(subjects) > 0 {
		r.SubjectID = subjects[rng.IntN(len(subjects))].ID
	}
	if rs.Deadline > 0 {
		dl := at + rs.Deadline
		r.DeadlineStep = &dl
	}
	return r
}

// #endregion generate

// #region helpers
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func pickClass(rng *rand.Rand, classes []ClassSpec) ClassSpec {
	weights := make([]int, len(classes))
	for i, c := range classes {
		weights[i] = c.Weight
	}
	return classes[Weighted(rng, weights)]
}

func pickProximity(rng *rand.Rand, prox []ProximitySpec) ProximitySpec {
	weights := make([]int, len(prox))
	for i, p := range prox {
		weights[i] = p.Weight
	}
	return prox[Weighted(rng, weights)]
}

// Weighted returns an index drawn in proportion to weights. It draws exactly
// once, even for a single candidate.
func Weighted(rng *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		total += max(w, 0)
	}
	if total == 0 {
		return rng.IntN(len(weights))
	}
	n := rng.IntN(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if n < w {
			return i
		}
		n -= w
	}
	return len(weights) - 1
}

func subjectName(names []string, i int) string {
	if len(names) == 0 {
		return fmt.Sprintf("Subject %d", i+1)
	}
	name := names[i%len(names)]
	if round := i / len(names); round > 0 {
		name = fmt.Sprintf("%s %d", name, round+1)
	}
	return name
}

var kindOrder = map[string]int{"arrival": 0, "event": 1, "pressure": 2, "deadline": 3, "expiry": 4}

func timeline(sc Scenario) []TimelineEntry {
	var out []TimelineEntry
	for _, s := range sc.Subjects {
		out = append(out, TimelineEntry{Step: s.ArrivalStep, Kind: "arrival", ID: s.ID})
		if s.ExpiryStep != nil {
			out = append(out, TimelineEntry{Step: *s.ExpiryStep, Kind: "expiry", ID: s.ID})
		}
	}
	for _, group := range [][]*world.Record{sc.Events, sc.Pressures} {
		for _, r := range group {
			out = append(out, TimelineEntry{Step: r.ActivationStep, Kind: string(r.Kind), ID: r.ID})
			if r.DeadlineStep != nil {
				out = append(out, TimelineEntry{Step: *r.DeadlineStep, Kind: "deadline", ID: r.ID})
			}
		}
	}
	slices.SortStableFunc(out, func(a, b TimelineEntry) int {
		return cmp.Or(
			cmp.Compare(a.Step, b.Step),
			cmp.Compare(kindOrder[a.Kind], kindOrder[b.Kind]),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

// #endregion helpers

// #region validate
// Validate checks that spec can always generate.
func (s Spec) Validate() error {
	if s.SubjectPrefix == "" {
		return fmt.Errorf("scenario: empty subject_prefix")
	}
	if s.OpeningSubjects < 0 || s.SubjectCount.Min < 0 || s.SubjectCount.Max < s.SubjectCount.Min {
		return fmt.Errorf("scenario: bad subject counts")
	}
	if s.OpeningSubjects+s.SubjectCount.Max == 0 {
		return fmt.Errorf("scenario: no subjects")
	}
	if len(s.Classes) == 0 {
		return fmt.Errorf("scenario: no classes")
	}
	for _, c := range s.Classes {
		if c.Name == "" || c.ValidRate < 0 || c.ValidRate > 1 {
			return fmt.Errorf("scenario: bad class %q", c.Name)
		}
	}
	if s.DecoyClass == "" {
		return fmt.Errorf("scenario: empty decoy_class")
	}
	if len(s.Proximities) == 0 {
		return fmt.Errorf("scenario: no proximities")
	}
	for _, p := range s.Proximities {
		if p.Name == "" || p.HarmFactor < 0 {
			return fmt.Errorf("scenario: bad proximity %q", p.Name)
		}
	}
	if s.Size.Min < 0 || s.Size.Max < s.Size.Min {
		return fmt.Errorf("scenario: bad size range")
	}
	if s.ArrivalWindow.Min < 0 || s.ArrivalWindow.Max > 1 || s.ArrivalWindow.Max < s.ArrivalWindow.Min {
		return fmt.Errorf("scenario: bad arrival window")
	}
	if s.Lifetime.Min < 0 || s.Lifetime.Max < s.Lifetime.Min {
		return fmt.Errorf("scenario: bad lifetime range")
	}
	for _, group := range [][]RecordSpec{s.Events, s.Pressures} {
		for _, r := range group {
			if r.Template == "" {
				return fmt.Errorf("scenario: record without template")
			}
			if len(r.Options) == 0 {
				return fmt.Errorf("scenario: record %q has no options", r.Template)
			}
			if r.Default != "" && !slices.Contains(r.Options, r.Default) {
				return fmt.Errorf("scenario: record %q default %q not an option", r.Template, r.Default)
			}
			if r.Deadline > 0 && r.Default == "" {
				return fmt.Errorf("scenario: record %q has a deadline but no default", r.Template)
			}
		}
	}
	return nil
}

// HarmFactor looks up the harm factor of a proximity type.
func (s Spec) HarmFactor(proximity string) float64 {
	for _, p := range s.Proximities {
		if p.Name == proximity {
			return p.HarmFactor
		}
	}
	return 0
}

// #endregion validate
