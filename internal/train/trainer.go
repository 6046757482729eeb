package train

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/thyrook/pacer/internal/optim"
	"github.com/thyrook/pacer/internal/schedule"
	"github.com/thyrook/pacer/internal/storage"
)

// Optimizer is the parameter-updating side of a training run. It extends
// the scheduler's rate interface with group access and the update step.
type Optimizer interface {
	schedule.Optimizer
	Groups() []*optim.Group
	Step()
	ZeroGrads()
}

// Objective computes the loss for one parameter group and accumulates the
// gradient into grads. It is evaluated once per group each step, after the
// gradients have been zeroed.
type Objective func(params, grads []float64) float64

// StepMetrics records one completed optimization step
type StepMetrics struct {
	Step          int
	Loss          float64
	LearningRates []float64
}

// Config holds training loop settings
type Config struct {
	RunID              string
	Steps              int // 0 runs the remainder of the schedule
	LogInterval        int
	CheckpointInterval int
}

// Trainer drives an optimizer through the learning-rate schedule against
// an objective, checkpointing progress so runs can resume
type Trainer struct {
	opt       Optimizer
	objective Objective
	sched     *schedule.Scheduler
	store     *storage.RunStore
	cfg       Config
	logger    *zap.Logger

	fingerprint string
	metrics     []StepMetrics
}

// New creates a trainer. The store may be nil to disable checkpointing.
func New(opt Optimizer, objective Objective, sched *schedule.Scheduler, store *storage.RunStore, cfg Config, logger *zap.Logger) (*Trainer, error) {
	if opt == nil {
		return nil, fmt.Errorf("optimizer is nil")
	}
	if objective == nil {
		return nil, fmt.Errorf("objective is nil")
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler is nil")
	}
	if store != nil && cfg.RunID == "" {
		return nil, fmt.Errorf("run ID is required for checkpointing")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Trainer{
		opt:         opt,
		objective:   objective,
		sched:       sched,
		store:       store,
		cfg:         cfg,
		logger:      logger,
		fingerprint: storage.Fingerprint(sched.Config()),
		metrics:     make([]StepMetrics, 0),
	}, nil
}

// Run executes the training loop until the schedule is exhausted or the
// configured step count is reached. A canceled context saves a checkpoint
// before returning.
func (t *Trainer) Run(ctx context.Context) error {
	start := t.sched.GetLastStep() + 1
	remaining := t.sched.TotalSteps() - start
	if t.cfg.Steps > 0 && t.cfg.Steps < remaining {
		remaining = t.cfg.Steps
	}
	if remaining <= 0 {
		return nil
	}

	t.logger.Info("Starting training",
		zap.String("run_id", t.cfg.RunID),
		zap.Int("start_step", start),
		zap.Int("steps", remaining))

	for i := 0; i < remaining; i++ {
		select {
		case <-ctx.Done():
			if err := t.checkpoint(); err != nil {
				t.logger.Warn("Failed to save checkpoint", zap.Error(err))
			}
			return ctx.Err()
		default:
		}

		t.opt.ZeroGrads()

		loss := 0.0
		for _, g := range t.opt.Groups() {
			loss += t.objective(g.Params, g.Grads)
		}

		// Advance the schedule, then update at the new rates
		lrs := t.sched.Step()
		t.opt.Step()

		step := t.sched.GetLastStep()
		t.metrics = append(t.metrics, StepMetrics{Step: step, Loss: loss, LearningRates: lrs})

		if t.cfg.LogInterval > 0 && (i+1)%t.cfg.LogInterval == 0 {
			t.logger.Info("Training progress",
				zap.Int("step", step),
				zap.Float64("loss", loss),
				zap.Float64s("lrs", lrs))
		}

		if t.store != nil && t.cfg.CheckpointInterval > 0 && (i+1)%t.cfg.CheckpointInterval == 0 {
			if err := t.checkpoint(); err != nil {
				t.logger.Warn("Failed to save checkpoint", zap.Error(err))
			}
		}
	}

	if err := t.checkpoint(); err != nil {
		return fmt.Errorf("failed to save final state: %w", err)
	}

	t.logger.Info("Training complete",
		zap.Int("last_step", t.sched.GetLastStep()),
		zap.Float64("final_loss", t.metrics[len(t.metrics)-1].Loss))

	return nil
}

// GetMetrics returns the recorded per-step metrics
func (t *Trainer) GetMetrics() []StepMetrics {
	return t.metrics
}

// Fingerprint returns the schedule identity used for checkpoints
func (t *Trainer) Fingerprint() string {
	return t.fingerprint
}

func (t *Trainer) checkpoint() error {
	if t.store == nil {
		return nil
	}

	return t.store.SaveState(storage.RunState{
		RunID:       t.cfg.RunID,
		LastStep:    t.sched.GetLastStep(),
		Fingerprint: t.fingerprint,
	})
}

// ResumeStep looks up the step a run should resume from. It returns -1 for
// a fresh start when the store is nil or holds no state for the run, and an
// error when saved state exists but was produced by a different schedule.
func ResumeStep(store *storage.RunStore, runID string, cfg schedule.Config) (int, error) {
	if store == nil {
		return -1, nil
	}

	step, err := store.ResumeStep(runID, storage.Fingerprint(cfg))
	if errors.Is(err, storage.ErrRunNotFound) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}

	return step, nil
}
