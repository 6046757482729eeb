package train

// Quadratic returns an objective whose minimum sits at target. Parameters
// beyond the target length are pulled toward zero.
func Quadratic(target []float64) Objective {
	return func(params, grads []float64) float64 {
		loss := 0.0
		for i := range params {
			tgt := 0.0
			if i < len(target) {
				tgt = target[i]
			}
			d := params[i] - tgt
			grads[i] += 2 * d
			loss += d * d
		}
		return loss
	}
}

// Rosenbrock returns the classic banana-valley objective over consecutive
// parameter pairs, with its minimum at all ones. It needs at least two
// parameters to produce a gradient.
func Rosenbrock() Objective {
	const a, b = 1.0, 100.0
	return func(params, grads []float64) float64 {
		loss := 0.0
		for i := 0; i+1 < len(params); i++ {
			x, y := params[i], params[i+1]
			t1 := y - x*x
			t2 := a - x
			loss += b*t1*t1 + t2*t2
			grads[i] += -4*b*x*t1 - 2*t2
			grads[i+1] += 2 * b * t1
		}
		return loss
	}
}
