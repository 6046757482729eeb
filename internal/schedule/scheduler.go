package schedule

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// WarmupLinear is the only supported warm-up ramp shape.
const WarmupLinear = "linear"

// Optimizer is the narrow collaborator contract the scheduler drives: an
// ordered collection of parameter groups, each with a readable and writable
// learning rate.
type Optimizer interface {
	NumParamGroups() int
	LearningRate(group int) float64
	SetLearningRate(group int, lr float64)
}

// Config declares a full warm-up/cosine/plateau schedule. It is captured at
// construction and never consulted again for mutable state.
type Config struct {
	// TotalSteps is the total planned number of optimization steps.
	TotalSteps int
	// WarmupSteps is the length of the linear ramp, in [0, TotalSteps].
	WarmupSteps int
	// MinLRRatio is the floor as a fraction of each group's base rate.
	MinLRRatio float64
	// Plateaus lists flat regions as percentages of the post-warm-up range.
	Plateaus []PlateauSpec
	// BaseLRs optionally fixes the per-group base rates. When empty the
	// rates are read from the optimizer's parameter groups.
	BaseLRs []float64
	// WarmupType selects the ramp shape. Empty means "linear".
	WarmupType string
	// LastStep is the resumption counter: -1 starts fresh, a value >= 0
	// resumes immediately after that step. The zero value resumes after
	// step 0; pass -1 for a fresh schedule.
	LastStep int
	// Verbose logs every computed step at debug level.
	Verbose bool
}

// Scheduler computes per-step learning rates from an immutable plan and
// writes them into the optimizer's parameter groups. The step counter is the
// only mutable state besides the segment hint; a single caller must drive
// Step.
type Scheduler struct {
	cfg     Config
	opt     Optimizer
	logger  *zap.Logger
	baseLRs []float64
	plan    *plan

	lastStep   int
	lastLRs    []float64
	lastSegIdx int
}

// New plans a schedule against the optimizer's parameter groups. The plan is
// computed once here; construction fails with a ConfigError before any state
// is committed if the configuration is invalid. With cfg.LastStep >= 0 the
// rates for that step are re-applied so the optimizer matches the state a
// fresh run would have reached.
func New(opt Optimizer, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opt == nil {
		return nil, &ConfigError{Field: "optimizer", Value: nil, Reason: "collaborator is required"}
	}

	numGroups := opt.NumParamGroups()
	if numGroups <= 0 {
		return nil, &ConfigError{Field: "optimizer", Value: numGroups, Reason: "collaborator has no parameter groups"}
	}

	var baseLRs []float64
	if len(cfg.BaseLRs) > 0 {
		if len(cfg.BaseLRs) != numGroups {
			return nil, &ConfigError{
				Field:  "base_lrs",
				Value:  len(cfg.BaseLRs),
				Reason: fmt.Sprintf("length must match the optimizer's %d parameter groups", numGroups),
			}
		}
		baseLRs = slices.Clone(cfg.BaseLRs)
	} else {
		baseLRs = make([]float64, numGroups)
		for g := 0; g < numGroups; g++ {
			baseLRs[g] = opt.LearningRate(g)
		}
	}

	cfg.Plateaus = slices.Clone(cfg.Plateaus)
	cfg.BaseLRs = slices.Clone(baseLRs)

	p, err := buildPlan(cfg, baseLRs)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:      cfg,
		opt:      opt,
		logger:   logger,
		baseLRs:  baseLRs,
		plan:     p,
		lastStep: cfg.LastStep,
	}

	logger.Info("Schedule planned",
		zap.Int("total_steps", cfg.TotalSteps),
		zap.Int("warmup_steps", cfg.WarmupSteps),
		zap.Int("post_warmup_steps", p.postWarmup),
		zap.Int("effective_total", p.effectiveTotal),
		zap.Int("plateaus", len(p.plateaus)),
		zap.Int("segments", len(p.segments)),
	)

	if s.lastStep >= 0 {
		lrs := s.computeLRs(s.lastStep)
		s.applyLRs(lrs)
		s.lastLRs = lrs
		logger.Info("Resumed schedule",
			zap.Int("last_step", s.lastStep),
			zap.Float64s("lrs", lrs),
		)
	}

	return s, nil
}

// Step advances the counter by one, computes every group's learning rate for
// the new step, writes the rates into the optimizer and returns them. The
// first call after fresh construction yields step 0. Calling past TotalSteps
// keeps returning the final segment's end value.
func (s *Scheduler) Step() []float64 {
	s.lastStep++
	lrs := s.computeLRs(s.lastStep)
	s.applyLRs(lrs)
	s.lastLRs = lrs

	if s.cfg.Verbose {
		s.logger.Debug("Learning rate updated",
			zap.Int("step", s.lastStep),
			zap.Float64s("lrs", lrs),
		)
	}
	return slices.Clone(lrs)
}

// GetLR returns the learning rate a given step and parameter group would
// receive. Steps beyond TotalSteps clamp to the final segment's end value;
// negative steps and out-of-range groups are usage errors.
func (s *Scheduler) GetLR(step, group int) (float64, error) {
	if group < 0 || group >= len(s.baseLRs) {
		return 0, &UsageError{
			Op:     "GetLR",
			Reason: fmt.Sprintf("group index %d out of range [0, %d)", group, len(s.baseLRs)),
		}
	}
	if step < 0 {
		return 0, &UsageError{
			Op:     "GetLR",
			Reason: fmt.Sprintf("step %d is negative", step),
		}
	}
	return s.lrAt(step, group), nil
}

// GetLastLRs returns a copy of the rates computed by the most recent Step
// (or applied at resumption). It is nil before the first step of a fresh
// schedule.
func (s *Scheduler) GetLastLRs() []float64 {
	return slices.Clone(s.lastLRs)
}

// GetLastStep returns the most recently completed step, -1 if none.
func (s *Scheduler) GetLastStep() int {
	return s.lastStep
}

// NumGroups returns the number of parameter groups the schedule covers.
func (s *Scheduler) NumGroups() int {
	return len(s.baseLRs)
}

// BaseLRs returns a copy of the captured per-group base rates.
func (s *Scheduler) BaseLRs() []float64 {
	return slices.Clone(s.baseLRs)
}

// MinLRs returns a copy of the per-group rate floors.
func (s *Scheduler) MinLRs() []float64 {
	return slices.Clone(s.plan.minLRs)
}

// TotalSteps returns the planned number of optimization steps.
func (s *Scheduler) TotalSteps() int {
	return s.cfg.TotalSteps
}

// WarmupSteps returns the length of the linear ramp.
func (s *Scheduler) WarmupSteps() int {
	return s.cfg.WarmupSteps
}

// PostWarmupSteps returns the number of steps after the warm-up ramp.
func (s *Scheduler) PostWarmupSteps() int {
	return s.plan.postWarmup
}

// EffectiveTotal returns the cosine clock length: the post-warm-up steps
// minus all plateau time.
func (s *Scheduler) EffectiveTotal() int {
	return s.plan.effectiveTotal
}

// GetSegments returns a copy of the planned partition, sorted by start.
func (s *Scheduler) GetSegments() []Segment {
	segments := make([]Segment, len(s.plan.segments))
	for i, seg := range s.plan.segments {
		seg.StartLRs = slices.Clone(seg.StartLRs)
		seg.EndLRs = slices.Clone(seg.EndLRs)
		seg.LRs = slices.Clone(seg.LRs)
		segments[i] = seg
	}
	return segments
}

// GetPlateaus returns a copy of the resolved plateaus, sorted by start.
func (s *Scheduler) GetPlateaus() []Plateau {
	plateaus := make([]Plateau, len(s.plan.plateaus))
	for i, pl := range s.plan.plateaus {
		pl.LRs = slices.Clone(pl.LRs)
		plateaus[i] = pl
	}
	return plateaus
}

// Config returns a copy of the configuration the schedule was built from,
// with BaseLRs as captured at construction.
func (s *Scheduler) Config() Config {
	cfg := s.cfg
	cfg.Plateaus = slices.Clone(cfg.Plateaus)
	cfg.BaseLRs = slices.Clone(s.baseLRs)
	return cfg
}

// computeLRs evaluates every group at the given step.
func (s *Scheduler) computeLRs(step int) []float64 {
	lrs := make([]float64, len(s.baseLRs))
	for g := range s.baseLRs {
		lrs[g] = s.lrAt(step, g)
	}
	return lrs
}

// applyLRs writes the rates into the optimizer's parameter groups.
func (s *Scheduler) applyLRs(lrs []float64) {
	for g, lr := range lrs {
		s.opt.SetLearningRate(g, lr)
	}
}

// lrAt computes the rate for a validated step and group.
func (s *Scheduler) lrAt(step, group int) float64 {
	if step < s.cfg.WarmupSteps {
		// Linear warmup
		return s.baseLRs[group] * float64(step) / float64(s.cfg.WarmupSteps)
	}

	if s.plan.postWarmup == 0 {
		// No post-warm-up phase at all: the ramp's target rate.
		return s.baseLRs[group]
	}

	pos := step - s.cfg.WarmupSteps
	if pos > s.plan.postWarmup {
		pos = s.plan.postWarmup
	}

	seg := s.findSegment(pos)
	if seg == nil {
		return s.plan.minLRs[group]
	}
	return segmentLR(seg, float64(pos), group)
}

// findSegment locates the segment containing a post-warm-up position,
// checking the previously matched segment first since sequential access is
// the dominant pattern. Positions at or past the end map to the final
// segment, whose end value then applies.
func (s *Scheduler) findSegment(pos int) *Segment {
	segments := s.plan.segments
	if len(segments) == 0 {
		return nil
	}

	if pos >= s.plan.postWarmup {
		s.lastSegIdx = len(segments) - 1
		return &segments[s.lastSegIdx]
	}

	if i := s.lastSegIdx; i >= 0 && i < len(segments) {
		if seg := &segments[i]; seg.Start <= pos && pos < seg.End {
			return seg
		}
	}

	for i := range segments {
		if segments[i].Start <= pos && pos < segments[i].End {
			s.lastSegIdx = i
			return &segments[i]
		}
	}
	return nil
}
