package schedule

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// SegmentKind identifies how a segment computes its learning rate.
type SegmentKind int

const (
	// KindCosine segments interpolate a half-cosine between their boundary rates.
	KindCosine SegmentKind = iota
	// KindPlateau segments hold a constant rate.
	KindPlateau
)

// String returns a human-readable segment kind.
func (k SegmentKind) String() string {
	switch k {
	case KindCosine:
		return "cosine"
	case KindPlateau:
		return "plateau"
	default:
		return "unknown"
	}
}

// PlateauSpec declares a flat region as percentages of the post-warm-up range.
// PositionPct is where the plateau starts and DurationPct how long it lasts,
// both in [0, 100].
type PlateauSpec struct {
	PositionPct float64 `json:"position_pct"`
	DurationPct float64 `json:"duration_pct"`
}

// Plateau is a spec resolved to absolute post-warm-up step coordinates.
// The half-open range [Start, End) holds LRs constant for every group.
type Plateau struct {
	Start int
	End   int
	LRs   []float64
}

// Segment is one piece of the post-warm-up partition consulted by the
// evaluator. Cosine segments carry their boundary rates per group; plateau
// segments carry a constant rate per group.
type Segment struct {
	Kind     SegmentKind
	Start    int
	End      int
	StartLRs []float64
	EndLRs   []float64
	LRs      []float64
}

// ConfigError reports a configuration value the planner rejected.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("schedule: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// UsageError reports an invalid call against an otherwise valid schedule.
type UsageError struct {
	Op     string
	Reason string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("schedule: %s: %s", e.Op, e.Reason)
}

// plan is the immutable output of the planner: the resolved plateaus, the
// segment partition of [0, postWarmup), and the per-group rate floors.
// It is built once at construction and never mutated afterwards.
type plan struct {
	postWarmup     int
	effectiveTotal int
	plateaus       []Plateau
	segments       []Segment
	minLRs         []float64
}

// buildPlan validates the configuration and resolves the full post-warm-up
// partition. It returns a ConfigError on the first violation and commits
// nothing until every derived value has been computed.
func buildPlan(cfg Config, baseLRs []float64) (*plan, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	postWarmup := cfg.TotalSteps - cfg.WarmupSteps

	minLRs := make([]float64, len(baseLRs))
	for i, base := range baseLRs {
		minLRs[i] = base * cfg.MinLRRatio
	}

	plateaus, err := resolvePlateaus(cfg.Plateaus, postWarmup)
	if err != nil {
		return nil, err
	}

	totalPlateau := 0
	for _, pl := range plateaus {
		totalPlateau += pl.End - pl.Start
	}

	p := &plan{
		postWarmup:     postWarmup,
		effectiveTotal: postWarmup - totalPlateau,
		plateaus:       plateaus,
		minLRs:         minLRs,
	}

	// Fix each plateau's constant rate from the global curve at its
	// effective position. Plateau time does not advance the effective
	// clock, so subtract the durations already passed.
	elapsed := 0
	for i := range p.plateaus {
		effPos := p.plateaus[i].Start - elapsed
		p.plateaus[i].LRs = make([]float64, len(baseLRs))
		for g := range baseLRs {
			p.plateaus[i].LRs[g] = p.globalLR(float64(effPos), g, baseLRs)
		}
		elapsed += p.plateaus[i].End - p.plateaus[i].Start
	}

	p.segments = p.buildSegments(baseLRs)
	return p, nil
}

// validateConfig checks every scalar field before any resolution happens.
func validateConfig(cfg Config) error {
	if cfg.TotalSteps <= 0 {
		return &ConfigError{Field: "total_steps", Value: cfg.TotalSteps, Reason: "must be positive"}
	}
	if cfg.WarmupSteps < 0 || cfg.WarmupSteps > cfg.TotalSteps {
		return &ConfigError{
			Field:  "warmup_steps",
			Value:  cfg.WarmupSteps,
			Reason: fmt.Sprintf("must be between 0 and total_steps (%d)", cfg.TotalSteps),
		}
	}
	if cfg.MinLRRatio < 0 || cfg.MinLRRatio > 1 {
		return &ConfigError{Field: "min_lr_ratio", Value: cfg.MinLRRatio, Reason: "must be in [0, 1]"}
	}
	if cfg.WarmupType != "" && cfg.WarmupType != WarmupLinear {
		return &ConfigError{Field: "warmup_type", Value: cfg.WarmupType, Reason: "only \"linear\" is supported"}
	}
	if cfg.LastStep < -1 {
		return &ConfigError{Field: "last_step", Value: cfg.LastStep, Reason: "must be -1 (fresh) or a completed step index"}
	}
	for i, spec := range cfg.Plateaus {
		if spec.PositionPct < 0 || spec.PositionPct > 100 {
			return &ConfigError{
				Field:  fmt.Sprintf("plateaus[%d].position_pct", i),
				Value:  spec.PositionPct,
				Reason: "must be in [0, 100]",
			}
		}
		if spec.DurationPct <= 0 || spec.DurationPct > 100 {
			return &ConfigError{
				Field:  fmt.Sprintf("plateaus[%d].duration_pct", i),
				Value:  spec.DurationPct,
				Reason: "must be in (0, 100]",
			}
		}
		if spec.PositionPct+spec.DurationPct > 100 {
			return &ConfigError{
				Field:  fmt.Sprintf("plateaus[%d]", i),
				Value:  fmt.Sprintf("position %.2f%% + duration %.2f%%", spec.PositionPct, spec.DurationPct),
				Reason: "extends past the end of the schedule",
			}
		}
	}
	return nil
}

// resolvePlateaus converts percentage specs into absolute step ranges within
// the post-warm-up range, sorted by start, and rejects overlaps.
func resolvePlateaus(specs []PlateauSpec, postWarmup int) ([]Plateau, error) {
	plateaus := make([]Plateau, 0, len(specs))
	for _, spec := range specs {
		start := int(math.Round(spec.PositionPct / 100 * float64(postWarmup)))
		length := int(math.Round(spec.DurationPct / 100 * float64(postWarmup)))
		end := start + length
		if start > postWarmup {
			start = postWarmup
		}
		if end > postWarmup {
			end = postWarmup
		}
		plateaus = append(plateaus, Plateau{Start: start, End: end})
	}

	slices.SortStableFunc(plateaus, func(a, b Plateau) int { return a.Start - b.Start })

	for i := 1; i < len(plateaus); i++ {
		if plateaus[i].Start < plateaus[i-1].End {
			return nil, &ConfigError{
				Field:  fmt.Sprintf("plateaus[%d]", i),
				Value:  fmt.Sprintf("steps [%d, %d)", plateaus[i].Start, plateaus[i].End),
				Reason: fmt.Sprintf("overlaps plateau at steps [%d, %d)", plateaus[i-1].Start, plateaus[i-1].End),
			}
		}
	}
	return plateaus, nil
}

// buildSegments walks the post-warm-up axis emitting alternating cosine and
// plateau segments. Cosine boundary rates come from the neighbouring plateau
// constants (base rates before the first plateau, floor rates after the last),
// which places each boundary exactly on the global curve.
func (p *plan) buildSegments(baseLRs []float64) []Segment {
	segments := make([]Segment, 0, 2*len(p.plateaus)+1)
	cur := 0
	prevLRs := slices.Clone(baseLRs)

	for i := range p.plateaus {
		pl := &p.plateaus[i]
		if cur < pl.Start {
			segments = append(segments, Segment{
				Kind:     KindCosine,
				Start:    cur,
				End:      pl.Start,
				StartLRs: slices.Clone(prevLRs),
				EndLRs:   slices.Clone(pl.LRs),
			})
		}
		if pl.Start < pl.End {
			segments = append(segments, Segment{
				Kind:  KindPlateau,
				Start: pl.Start,
				End:   pl.End,
				LRs:   slices.Clone(pl.LRs),
			})
		}
		cur = pl.End
		prevLRs = pl.LRs
	}

	if cur < p.postWarmup {
		segments = append(segments, Segment{
			Kind:     KindCosine,
			Start:    cur,
			End:      p.postWarmup,
			StartLRs: slices.Clone(prevLRs),
			EndLRs:   slices.Clone(p.minLRs),
		})
	}
	return segments
}

// globalLR evaluates the global cosine curve for a group at an effective
// position, where the denominator excludes all plateau time. With the whole
// post-warm-up range consumed by plateaus the curve is treated as fully
// decayed and the floor is returned.
func (p *plan) globalLR(effPos float64, group int, baseLRs []float64) float64 {
	if p.effectiveTotal <= 0 {
		return p.minLRs[group]
	}
	progress := effPos / float64(p.effectiveTotal)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	cosine := 0.5 * (1.0 + math.Cos(math.Pi*progress))
	return p.minLRs[group] + (baseLRs[group]-p.minLRs[group])*cosine
}

// segmentLR evaluates one segment at post-warm-up position pos. Cosine
// segments re-derive an independent half-cosine from their own boundary
// rates, so each segment stays smooth regardless of its neighbours.
func segmentLR(seg *Segment, pos float64, group int) float64 {
	if seg.Kind == KindPlateau {
		return seg.LRs[group]
	}
	length := float64(seg.End - seg.Start)
	if length <= 0 {
		return seg.StartLRs[group]
	}
	progress := (pos - float64(seg.Start)) / length
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	cosine := 0.5 * (1.0 + math.Cos(math.Pi*progress))
	return seg.EndLRs[group] + (seg.StartLRs[group]-seg.EndLRs[group])*cosine
}
