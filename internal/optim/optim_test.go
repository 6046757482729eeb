package optim

import (
	"math"
	"testing"

	"github.com/thyrook/pacer/internal/schedule"
)

// The optimizers are the collaborators the scheduler writes into.
var (
	_ schedule.Optimizer = (*SGD)(nil)
	_ schedule.Optimizer = (*Adam)(nil)
)

// Helper evaluating a quadratic bowl with minimum at target
func quadraticGrads(g *Group, target []float64) float64 {
	loss := 0.0
	for i, p := range g.Params {
		diff := p - target[i]
		loss += diff * diff
		g.Grads[i] = 2 * diff
	}
	return loss
}

func TestGroup(t *testing.T) {
	g := NewGroup("weights", []float64{1, 2, 3}, 0.1)

	t.Run("RateAccess", func(t *testing.T) {
		if g.LearningRate() != 0.1 {
			t.Errorf("Expected rate 0.1, got %g", g.LearningRate())
		}
		g.SetLearningRate(0.5)
		if g.LearningRate() != 0.5 {
			t.Errorf("Expected rate 0.5, got %g", g.LearningRate())
		}
	})

	t.Run("ZeroGrads", func(t *testing.T) {
		g.Grads[0] = 7
		g.ZeroGrads()
		if g.Grads[0] != 0 {
			t.Errorf("Expected cleared gradient, got %g", g.Grads[0])
		}
	})

	t.Run("ScaleLengthChecked", func(t *testing.T) {
		if err := g.SetScale([]float64{1, 2}); err == nil {
			t.Error("Expected an error for mismatched scale length, got nil")
		}
		if err := g.SetScale([]float64{1, 1, 0}); err != nil {
			t.Errorf("Expected matching scale to be accepted, got %v", err)
		}
	})
}

func TestSGD(t *testing.T) {
	t.Run("ConvergesOnQuadratic", func(t *testing.T) {
		g := NewGroup("params", []float64{5, -3}, 0.1)
		target := []float64{1, 2}
		sgd, err := NewSGD([]*Group{g}, 0.9)
		if err != nil {
			t.Fatalf("NewSGD failed: %v", err)
		}

		for i := 0; i < 300; i++ {
			quadraticGrads(g, target)
			sgd.Step()
		}

		for i, p := range g.Params {
			if math.Abs(p-target[i]) > 1e-3 {
				t.Errorf("Expected parameter %d near %g, got %g", i, target[i], p)
			}
		}
	})

	t.Run("ZeroRateFreezesParams", func(t *testing.T) {
		g := NewGroup("params", []float64{5}, 0)
		sgd, err := NewSGD([]*Group{g}, 0)
		if err != nil {
			t.Fatalf("NewSGD failed: %v", err)
		}
		g.Grads[0] = 10
		sgd.Step()
		if g.Params[0] != 5 {
			t.Errorf("Expected frozen parameter at 5, got %g", g.Params[0])
		}
	})

	t.Run("Validation", func(t *testing.T) {
		if _, err := NewSGD(nil, 0.9); err == nil {
			t.Error("Expected an error for empty groups, got nil")
		}
		if _, err := NewSGD([]*Group{NewGroup("p", []float64{1}, 0.1)}, 1.0); err == nil {
			t.Error("Expected an error for momentum 1.0, got nil")
		}
	})
}

func TestAdam(t *testing.T) {
	t.Run("ConvergesOnQuadratic", func(t *testing.T) {
		g := NewGroup("params", []float64{5, -3}, 0.1)
		target := []float64{1, 2}
		adam, err := NewAdam([]*Group{g})
		if err != nil {
			t.Fatalf("NewAdam failed: %v", err)
		}

		for i := 0; i < 500; i++ {
			quadraticGrads(g, target)
			adam.Step()
		}

		for i, p := range g.Params {
			if math.Abs(p-target[i]) > 1e-2 {
				t.Errorf("Expected parameter %d near %g, got %g", i, target[i], p)
			}
		}
	})

	t.Run("TimestepAdvances", func(t *testing.T) {
		g := NewGroup("params", []float64{1}, 0.01)
		adam, err := NewAdam([]*Group{g})
		if err != nil {
			t.Fatalf("NewAdam failed: %v", err)
		}
		adam.Step()
		adam.Step()
		if adam.Timestep() != 2 {
			t.Errorf("Expected timestep 2, got %d", adam.Timestep())
		}
	})

	t.Run("ScaleFreezesParameter", func(t *testing.T) {
		g := NewGroup("params", []float64{5, 5}, 0.1)
		if err := g.SetScale([]float64{1, 0}); err != nil {
			t.Fatalf("SetScale failed: %v", err)
		}
		adam, err := NewAdam([]*Group{g})
		if err != nil {
			t.Fatalf("NewAdam failed: %v", err)
		}

		for i := 0; i < 50; i++ {
			g.Grads[0], g.Grads[1] = 1, 1
			adam.Step()
		}

		if g.Params[0] >= 5 {
			t.Errorf("Expected scaled parameter 0 to move below 5, got %g", g.Params[0])
		}
		if g.Params[1] != 5 {
			t.Errorf("Expected zero-scaled parameter 1 frozen at 5, got %g", g.Params[1])
		}
	})

	t.Run("Validation", func(t *testing.T) {
		g := NewGroup("p", []float64{1}, 0.1)
		if _, err := NewAdamWithBetas([]*Group{g}, 1.0, 0.999, 1e-8); err == nil {
			t.Error("Expected an error for beta1 1.0, got nil")
		}
		if _, err := NewAdamWithBetas([]*Group{g}, 0.9, -0.1, 1e-8); err == nil {
			t.Error("Expected an error for negative beta2, got nil")
		}
		if _, err := NewAdamWithBetas([]*Group{g}, 0.9, 0.999, 0); err == nil {
			t.Error("Expected an error for zero eps, got nil")
		}
	})
}

func TestOptimizerGroupAccess(t *testing.T) {
	groups := []*Group{
		NewGroup("encoder", []float64{1}, 0.1),
		NewGroup("head", []float64{2}, 0.01),
	}
	adam, err := NewAdam(groups)
	if err != nil {
		t.Fatalf("NewAdam failed: %v", err)
	}

	if adam.NumParamGroups() != 2 {
		t.Errorf("Expected 2 groups, got %d", adam.NumParamGroups())
	}
	if adam.LearningRate(1) != 0.01 {
		t.Errorf("Expected rate 0.01 for group 1, got %g", adam.LearningRate(1))
	}

	adam.SetLearningRate(1, 0.005)
	if groups[1].LearningRate() != 0.005 {
		t.Errorf("Expected group rate updated to 0.005, got %g", groups[1].LearningRate())
	}
}
