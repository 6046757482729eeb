package model

import (
	"math"
	"testing"

	"github.com/thyrook/pacer/internal/schedule"
)

func TestNewSolverOptimizer(t *testing.T) {
	for _, kind := range []string{SolverSGD, SolverAdam} {
		opt, err := NewSolverOptimizer(kind, 0.01, 1, 0)
		if err != nil {
			t.Fatalf("Failed to create %s solver: %v", kind, err)
		}

		if opt.NumParamGroups() != 1 {
			t.Errorf("Expected 1 param group, got %d", opt.NumParamGroups())
		}

		if opt.LearningRate(0) != 0.01 {
			t.Errorf("Expected learning rate 0.01, got %g", opt.LearningRate(0))
		}
	}
}

func TestNewSolverOptimizerUnknownKind(t *testing.T) {
	if _, err := NewSolverOptimizer("lbfgs", 0.01, 1, 0); err == nil {
		t.Error("Expected error for unknown solver kind")
	}
}

func TestSolverOptimizerSetLearningRate(t *testing.T) {
	opt, err := NewSolverOptimizer(SolverSGD, 0.01, 1, 0)
	if err != nil {
		t.Fatalf("Failed to create solver: %v", err)
	}

	opt.SetLearningRate(0, 0.005)
	if opt.LearningRate(0) != 0.005 {
		t.Errorf("Expected learning rate 0.005, got %g", opt.LearningRate(0))
	}

	// Setting the same rate again is a no-op
	opt.SetLearningRate(0, 0.005)
	if opt.LearningRate(0) != 0.005 {
		t.Errorf("Expected learning rate 0.005, got %g", opt.LearningRate(0))
	}
}

func TestGorgoniaTrainerTraining(t *testing.T) {
	const (
		inputSize = 4
		batchSize = 8
		steps     = 50
	)

	m, err := NewMLP(inputSize, 8, 1, batchSize)
	if err != nil {
		t.Fatalf("Failed to create MLP: %v", err)
	}
	defer m.Close()

	opt, err := NewSolverOptimizer(SolverSGD, 0.05, float64(batchSize), 5.0)
	if err != nil {
		t.Fatalf("Failed to create solver: %v", err)
	}

	cfg := schedule.Config{
		TotalSteps:  steps,
		WarmupSteps: 5,
		MinLRRatio:  0.1,
		BaseLRs:     []float64{0.05},
		LastStep:    -1,
	}

	trainer, err := NewGorgoniaTrainer(m, opt, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create trainer: %v", err)
	}

	// Learn y = mean(x) on a fixed synthetic batch
	gen := func(step int) ([]float64, []float64) {
		features := make([]float64, batchSize*inputSize)
		targets := make([]float64, batchSize)
		for i := 0; i < batchSize; i++ {
			sum := 0.0
			for j := 0; j < inputSize; j++ {
				v := float64((i*inputSize+j)%7)/7.0 - 0.5
				features[i*inputSize+j] = v
				sum += v
			}
			targets[i] = sum / inputSize
		}
		return features, targets
	}

	if err := trainer.Train(steps, gen, 10); err != nil {
		t.Fatalf("Training failed: %v", err)
	}

	metrics := trainer.GetMetrics()
	if len(metrics) != steps {
		t.Fatalf("Expected %d metric entries, got %d", steps, len(metrics))
	}

	for _, ms := range metrics {
		if math.IsNaN(ms.Loss) || math.IsInf(ms.Loss, 0) {
			t.Fatalf("Loss at step %d is not finite: %g", ms.Step, ms.Loss)
		}
	}

	// Warmup ramps the rate up, cosine decay brings it back down
	if metrics[0].LearningRate >= metrics[4].LearningRate {
		t.Errorf("Expected rising warmup rates, got %g then %g",
			metrics[0].LearningRate, metrics[4].LearningRate)
	}

	if metrics[10].LearningRate <= metrics[steps-1].LearningRate {
		t.Errorf("Expected decaying rates, got %g then %g",
			metrics[10].LearningRate, metrics[steps-1].LearningRate)
	}

	if trainer.Scheduler().GetLastStep() != steps-1 {
		t.Errorf("Expected last step %d, got %d", steps-1, trainer.Scheduler().GetLastStep())
	}
}

func TestGorgoniaTrainerNilGenerator(t *testing.T) {
	m, err := NewMLP(2, 4, 1, 1)
	if err != nil {
		t.Fatalf("Failed to create MLP: %v", err)
	}
	defer m.Close()

	opt, err := NewSolverOptimizer(SolverSGD, 0.01, 1, 0)
	if err != nil {
		t.Fatalf("Failed to create solver: %v", err)
	}

	cfg := schedule.Config{
		TotalSteps: 10,
		BaseLRs:    []float64{0.01},
		LastStep:   -1,
	}

	trainer, err := NewGorgoniaTrainer(m, opt, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create trainer: %v", err)
	}

	if err := trainer.Train(10, nil, 5); err == nil {
		t.Error("Expected error for nil batch generator")
	}
}
