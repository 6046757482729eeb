package schedule

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Schedule is the contract a training loop drives once per optimization
// step. Step computes and applies the new rates; the accessors expose the
// latest state for logging and checkpointing.
type Schedule interface {
	Step() []float64
	GetLastLRs() []float64
	GetLastStep() int
}

// StepDecay multiplies each group's base rate by a fixed factor every
// DecaySteps steps, floored at MinLRRatio times the base rate.
type StepDecay struct {
	opt        Optimizer
	baseLRs    []float64
	decayRate  float64
	decaySteps int
	minRatio   float64

	lastStep int
	lastLRs  []float64
}

// NewStepDecay creates a step-based decay schedule over the optimizer's
// parameter groups.
func NewStepDecay(opt Optimizer, decayRate float64, decaySteps int, minRatio float64) (*StepDecay, error) {
	baseLRs, err := captureBaseLRs(opt)
	if err != nil {
		return nil, err
	}
	if decayRate <= 0 || decayRate > 1 {
		return nil, &ConfigError{Field: "decay_rate", Value: decayRate, Reason: "must be in (0, 1]"}
	}
	if decaySteps <= 0 {
		return nil, &ConfigError{Field: "decay_steps", Value: decaySteps, Reason: "must be positive"}
	}
	if minRatio < 0 || minRatio > 1 {
		return nil, &ConfigError{Field: "min_lr_ratio", Value: minRatio, Reason: "must be in [0, 1]"}
	}
	return &StepDecay{
		opt:        opt,
		baseLRs:    baseLRs,
		decayRate:  decayRate,
		decaySteps: decaySteps,
		minRatio:   minRatio,
		lastStep:   -1,
	}, nil
}

// GetLR returns the rate for a given step and parameter group.
func (s *StepDecay) GetLR(step, group int) (float64, error) {
	if err := checkStepGroup(step, group, len(s.baseLRs)); err != nil {
		return 0, err
	}
	numDecays := step / s.decaySteps
	lr := s.baseLRs[group] * math.Pow(s.decayRate, float64(numDecays))
	if floor := s.baseLRs[group] * s.minRatio; lr < floor {
		lr = floor
	}
	return lr, nil
}

// Step advances the schedule by one step and applies the new rates.
func (s *StepDecay) Step() []float64 {
	s.lastStep++
	s.lastLRs = applySchedule(s.opt, s.baseLRs, s.lastStep, s.GetLR)
	return slices.Clone(s.lastLRs)
}

// GetLastLRs returns a copy of the most recently applied rates.
func (s *StepDecay) GetLastLRs() []float64 {
	return slices.Clone(s.lastLRs)
}

// GetLastStep returns the most recently completed step, -1 if none.
func (s *StepDecay) GetLastStep() int {
	return s.lastStep
}

// Exponential decays each group's base rate by a fixed factor per step,
// floored at MinLRRatio times the base rate.
type Exponential struct {
	opt       Optimizer
	baseLRs   []float64
	decayRate float64
	minRatio  float64

	lastStep int
	lastLRs  []float64
}

// NewExponential creates an exponential decay schedule over the optimizer's
// parameter groups.
func NewExponential(opt Optimizer, decayRate, minRatio float64) (*Exponential, error) {
	baseLRs, err := captureBaseLRs(opt)
	if err != nil {
		return nil, err
	}
	if decayRate <= 0 || decayRate > 1 {
		return nil, &ConfigError{Field: "decay_rate", Value: decayRate, Reason: "must be in (0, 1]"}
	}
	if minRatio < 0 || minRatio > 1 {
		return nil, &ConfigError{Field: "min_lr_ratio", Value: minRatio, Reason: "must be in [0, 1]"}
	}
	return &Exponential{
		opt:       opt,
		baseLRs:   baseLRs,
		decayRate: decayRate,
		minRatio:  minRatio,
		lastStep:  -1,
	}, nil
}

// GetLR returns the rate for a given step and parameter group.
func (e *Exponential) GetLR(step, group int) (float64, error) {
	if err := checkStepGroup(step, group, len(e.baseLRs)); err != nil {
		return 0, err
	}
	lr := e.baseLRs[group] * math.Pow(e.decayRate, float64(step))
	if floor := e.baseLRs[group] * e.minRatio; lr < floor {
		lr = floor
	}
	return lr, nil
}

// Step advances the schedule by one step and applies the new rates.
func (e *Exponential) Step() []float64 {
	e.lastStep++
	e.lastLRs = applySchedule(e.opt, e.baseLRs, e.lastStep, e.GetLR)
	return slices.Clone(e.lastLRs)
}

// GetLastLRs returns a copy of the most recently applied rates.
func (e *Exponential) GetLastLRs() []float64 {
	return slices.Clone(e.lastLRs)
}

// GetLastStep returns the most recently completed step, -1 if none.
func (e *Exponential) GetLastStep() int {
	return e.lastStep
}

// captureBaseLRs reads the current rate of every parameter group.
func captureBaseLRs(opt Optimizer) ([]float64, error) {
	if opt == nil {
		return nil, &ConfigError{Field: "optimizer", Value: nil, Reason: "collaborator is required"}
	}
	numGroups := opt.NumParamGroups()
	if numGroups <= 0 {
		return nil, &ConfigError{Field: "optimizer", Value: numGroups, Reason: "collaborator has no parameter groups"}
	}
	baseLRs := make([]float64, numGroups)
	for g := 0; g < numGroups; g++ {
		baseLRs[g] = opt.LearningRate(g)
	}
	return baseLRs, nil
}

// checkStepGroup validates evaluator arguments shared by the schedules.
func checkStepGroup(step, group, numGroups int) error {
	if group < 0 || group >= numGroups {
		return &UsageError{
			Op:     "GetLR",
			Reason: fmt.Sprintf("group index %d out of range [0, %d)", group, numGroups),
		}
	}
	if step < 0 {
		return &UsageError{
			Op:     "GetLR",
			Reason: fmt.Sprintf("step %d is negative", step),
		}
	}
	return nil
}

// applySchedule computes every group's rate for a step and writes them into
// the optimizer. The step comes from the schedule's own counter, so the
// evaluators cannot fail here.
func applySchedule(opt Optimizer, baseLRs []float64, step int, getLR func(int, int) (float64, error)) []float64 {
	lrs := make([]float64, len(baseLRs))
	for g := range baseLRs {
		lr, err := getLR(step, g)
		if err != nil {
			lr = baseLRs[g]
		}
		lrs[g] = lr
		opt.SetLearningRate(g, lr)
	}
	return lrs
}
