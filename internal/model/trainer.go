package model

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/thyrook/pacer/internal/schedule"
)

// SolverKind selects the gorgonia solver wrapped by SolverOptimizer
const (
	SolverSGD  = "sgd"
	SolverAdam = "adam"
)

// SolverOptimizer adapts a gorgonia solver to the scheduler's optimizer
// interface. Gorgonia solvers fix their learning rate at construction, so
// rate changes recreate the solver. Recreation discards adaptive state,
// which makes the sgd kind the safer choice for schedules that change the
// rate every step.
type SolverOptimizer struct {
	kind      string
	lr        float64
	batchSize float64
	clip      float64
	solver    gorgonia.Solver
}

// NewSolverOptimizer creates a solver of the given kind with the initial
// learning rate
func NewSolverOptimizer(kind string, lr, batchSize, clip float64) (*SolverOptimizer, error) {
	switch kind {
	case SolverSGD, SolverAdam:
	default:
		return nil, fmt.Errorf("unknown solver kind: %q", kind)
	}

	s := &SolverOptimizer{
		kind:      kind,
		lr:        lr,
		batchSize: batchSize,
		clip:      clip,
	}
	s.rebuild()

	return s, nil
}

func (s *SolverOptimizer) rebuild() {
	opts := []gorgonia.SolverOpt{
		gorgonia.WithLearnRate(s.lr),
		gorgonia.WithBatchSize(s.batchSize),
	}
	if s.clip > 0 {
		opts = append(opts, gorgonia.WithClip(s.clip))
	}

	if s.kind == SolverAdam {
		s.solver = gorgonia.NewAdamSolver(opts...)
	} else {
		s.solver = gorgonia.NewVanillaSolver(opts...)
	}
}

// NumParamGroups returns the number of parameter groups. Gorgonia solvers
// update all learnables with a single rate, so there is exactly one.
func (s *SolverOptimizer) NumParamGroups() int {
	return 1
}

// LearningRate returns the current learning rate
func (s *SolverOptimizer) LearningRate(group int) float64 {
	return s.lr
}

// SetLearningRate changes the learning rate, recreating the solver if the
// rate actually changed
func (s *SolverOptimizer) SetLearningRate(group int, lr float64) {
	if lr == s.lr {
		return
	}
	s.lr = lr
	s.rebuild()
}

// Step applies accumulated gradients to the learnables
func (s *SolverOptimizer) Step(learnables gorgonia.Nodes) error {
	valueGrads := make([]gorgonia.ValueGrad, len(learnables))
	for i, n := range learnables {
		valueGrads[i] = n
	}

	if err := s.solver.Step(valueGrads); err != nil {
		return fmt.Errorf("failed to update weights: %w", err)
	}

	return nil
}

// TrainingMetrics tracks progress of a single training step
type TrainingMetrics struct {
	Step         int
	Loss         float64
	LearningRate float64
	Duration     time.Duration
}

// BatchFunc produces the features and targets for one training step
type BatchFunc func(step int) (features, targets []float64)

// GorgoniaTrainer drives an MLP through the learning-rate schedule. It owns
// the loss and gradient portion of the graph.
type GorgoniaTrainer struct {
	model      *MLP
	optimizer  *SolverOptimizer
	sched      *schedule.Scheduler
	logger     *zap.Logger
	targetNode *gorgonia.Node
	lossNode   *gorgonia.Node
	metrics    []TrainingMetrics
}

// NewGorgoniaTrainer extends the model graph with a loss node and gradients,
// then attaches the schedule to the solver
func NewGorgoniaTrainer(m *MLP, opt *SolverOptimizer, cfg schedule.Config, logger *zap.Logger) (*GorgoniaTrainer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create target node for training
	targetNode := gorgonia.NewMatrix(
		m.g,
		tensor.Float64,
		gorgonia.WithShape(m.batchSize, m.outputSize),
		gorgonia.WithName("target"),
	)

	// Create loss node
	lossNode, err := m.ComputeLoss(targetNode)
	if err != nil {
		return nil, fmt.Errorf("failed to create loss node: %w", err)
	}

	// Compute gradients
	if _, err := gorgonia.Grad(lossNode, m.Learnables()...); err != nil {
		return nil, fmt.Errorf("failed to compute gradients: %w", err)
	}

	// Recreate VM now that we have the full graph including loss and gradients
	m.vm.Close()
	m.vm = gorgonia.NewTapeMachine(m.g)

	sched, err := schedule.New(opt, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &GorgoniaTrainer{
		model:      m,
		optimizer:  opt,
		sched:      sched,
		logger:     logger,
		targetNode: targetNode,
		lossNode:   lossNode,
		metrics:    make([]TrainingMetrics, 0),
	}, nil
}

// TrainStep runs one forward/backward pass and applies the scheduled
// learning rate for this step
func (t *GorgoniaTrainer) TrainStep(features, targets []float64) (float64, error) {
	inputTensor := tensor.New(
		tensor.WithShape(t.model.batchSize, t.model.inputSize),
		tensor.WithBacking(features),
	)

	targetTensor := tensor.New(
		tensor.WithShape(t.model.batchSize, t.model.outputSize),
		tensor.WithBacking(targets),
	)

	if err := gorgonia.Let(t.model.input, inputTensor); err != nil {
		return 0, fmt.Errorf("failed to set input: %w", err)
	}

	if err := gorgonia.Let(t.targetNode, targetTensor); err != nil {
		return 0, fmt.Errorf("failed to set target: %w", err)
	}

	// Run forward and backward pass
	if err := t.model.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("failed to run forward/backward: %w", err)
	}

	// Get loss value
	lossValue := t.lossNode.Value()
	if lossValue == nil {
		return 0, fmt.Errorf("loss value is nil")
	}

	var loss float64
	switch v := lossValue.Data().(type) {
	case float64:
		loss = v
	case []float64:
		if len(v) == 0 {
			return 0, fmt.Errorf("loss value array is empty")
		}
		loss = v[0]
	default:
		return 0, fmt.Errorf("unexpected loss value type: %T", v)
	}

	// Advance the schedule, then update weights at the new rate
	t.sched.Step()

	if err := t.optimizer.Step(t.model.Learnables()); err != nil {
		return 0, err
	}

	t.model.vm.Reset()

	return loss, nil
}

// Train runs the given number of steps, pulling each batch from gen and
// logging progress every logInterval steps
func (t *GorgoniaTrainer) Train(steps int, gen BatchFunc, logInterval int) error {
	if gen == nil {
		return fmt.Errorf("batch generator is nil")
	}
	if logInterval <= 0 {
		logInterval = 100
	}

	for step := 0; step < steps; step++ {
		startTime := time.Now()

		features, targets := gen(step)
		loss, err := t.TrainStep(features, targets)
		if err != nil {
			return fmt.Errorf("step %d failed: %w", step, err)
		}

		metrics := TrainingMetrics{
			Step:         t.sched.GetLastStep(),
			Loss:         loss,
			LearningRate: t.optimizer.LearningRate(0),
			Duration:     time.Since(startTime),
		}
		t.metrics = append(t.metrics, metrics)

		if (step+1)%logInterval == 0 {
			t.logger.Info("Training progress",
				zap.Int("step", metrics.Step),
				zap.Float64("loss", metrics.Loss),
				zap.Float64("lr", metrics.LearningRate))
		}
	}

	return nil
}

// GetMetrics returns the recorded per-step metrics
func (t *GorgoniaTrainer) GetMetrics() []TrainingMetrics {
	return t.metrics
}

// Scheduler returns the underlying schedule
func (t *GorgoniaTrainer) Scheduler() *schedule.Scheduler {
	return t.sched
}
