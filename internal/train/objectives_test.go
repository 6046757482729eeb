package train

import (
	"math"
	"testing"
)

// numericGrad approximates the gradient by central differences
func numericGrad(obj Objective, params []float64) []float64 {
	const h = 1e-6

	eval := func(p []float64) float64 {
		grads := make([]float64, len(p))
		return obj(p, grads)
	}

	grads := make([]float64, len(params))
	for i := range params {
		hi := make([]float64, len(params))
		lo := make([]float64, len(params))
		copy(hi, params)
		copy(lo, params)
		hi[i] += h
		lo[i] -= h
		grads[i] = (eval(hi) - eval(lo)) / (2 * h)
	}

	return grads
}

func checkGradients(t *testing.T, obj Objective, params []float64) {
	t.Helper()

	analytic := make([]float64, len(params))
	obj(params, analytic)
	numeric := numericGrad(obj, params)

	for i := range params {
		diff := math.Abs(analytic[i] - numeric[i])
		scale := math.Max(1, math.Abs(numeric[i]))
		if diff/scale > 1e-4 {
			t.Errorf("Gradient %d mismatch: analytic %g, numeric %g", i, analytic[i], numeric[i])
		}
	}
}

func TestQuadratic(t *testing.T) {
	obj := Quadratic([]float64{1, -2})

	// Zero loss and gradient at the minimum
	params := []float64{1, -2}
	grads := make([]float64, 2)
	if loss := obj(params, grads); loss != 0 {
		t.Errorf("Expected zero loss at minimum, got %g", loss)
	}
	for i, g := range grads {
		if g != 0 {
			t.Errorf("Expected zero gradient at minimum, got grads[%d] = %g", i, g)
		}
	}

	// Loss is the squared distance from the target
	params = []float64{3, -2}
	grads = make([]float64, 2)
	if loss := obj(params, grads); loss != 4 {
		t.Errorf("Expected loss 4, got %g", loss)
	}
	if grads[0] != 4 || grads[1] != 0 {
		t.Errorf("Expected gradient (4, 0), got (%g, %g)", grads[0], grads[1])
	}

	checkGradients(t, obj, []float64{0.5, 3.7})
}

func TestQuadraticExtraParams(t *testing.T) {
	// Parameters beyond the target are pulled toward zero
	obj := Quadratic([]float64{1})

	params := []float64{1, 2}
	grads := make([]float64, 2)
	if loss := obj(params, grads); loss != 4 {
		t.Errorf("Expected loss 4, got %g", loss)
	}
	if grads[1] != 4 {
		t.Errorf("Expected gradient 4 for extra parameter, got %g", grads[1])
	}
}

func TestRosenbrock(t *testing.T) {
	obj := Rosenbrock()

	// Zero loss and gradient at the global minimum
	params := []float64{1, 1, 1}
	grads := make([]float64, 3)
	if loss := obj(params, grads); loss != 0 {
		t.Errorf("Expected zero loss at minimum, got %g", loss)
	}
	for i, g := range grads {
		if g != 0 {
			t.Errorf("Expected zero gradient at minimum, got grads[%d] = %g", i, g)
		}
	}

	checkGradients(t, obj, []float64{-1.2, 1, 0.5})
	checkGradients(t, obj, []float64{0.3, -0.7})
}

func TestObjectiveAccumulates(t *testing.T) {
	obj := Quadratic(nil)

	params := []float64{2}
	grads := []float64{10}
	obj(params, grads)

	// Gradients accumulate on top of whatever is already there
	if grads[0] != 14 {
		t.Errorf("Expected accumulated gradient 14, got %g", grads[0])
	}
}
