package optim

import (
	"fmt"
	"math"
)

// Default Adam hyperparameters.
const (
	DefaultBeta1 = 0.9
	DefaultBeta2 = 0.999
	DefaultEps   = 1e-8
)

// Adam implements the Adam update rule with bias correction over parameter
// groups. Moments are kept per group so groups can be added with distinct
// base rates.
type Adam struct {
	Beta1 float64
	Beta2 float64
	Eps   float64

	groups []*Group
	m      [][]float64
	v      [][]float64
	t      int
}

// NewAdam creates an Adam optimizer with the default hyperparameters.
func NewAdam(groups []*Group) (*Adam, error) {
	return NewAdamWithBetas(groups, DefaultBeta1, DefaultBeta2, DefaultEps)
}

// NewAdamWithBetas creates an Adam optimizer with explicit moment decay
// rates and epsilon.
func NewAdamWithBetas(groups []*Group, beta1, beta2, eps float64) (*Adam, error) {
	if err := validateGroups(groups); err != nil {
		return nil, err
	}
	if beta1 < 0 || beta1 >= 1 {
		return nil, fmt.Errorf("failed to create optimizer: beta1 %g must be in [0, 1)", beta1)
	}
	if beta2 < 0 || beta2 >= 1 {
		return nil, fmt.Errorf("failed to create optimizer: beta2 %g must be in [0, 1)", beta2)
	}
	if eps <= 0 {
		return nil, fmt.Errorf("failed to create optimizer: eps %g must be positive", eps)
	}

	m := make([][]float64, len(groups))
	v := make([][]float64, len(groups))
	for i, g := range groups {
		m[i] = make([]float64, len(g.Params))
		v[i] = make([]float64, len(g.Params))
	}
	return &Adam{
		Beta1:  beta1,
		Beta2:  beta2,
		Eps:    eps,
		groups: groups,
		m:      m,
		v:      v,
	}, nil
}

// Step folds the accumulated gradients into every group's parameters using
// bias-corrected moment estimates.
func (a *Adam) Step() {
	a.t++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.t))

	for gi, g := range a.groups {
		m, v := a.m[gi], a.v[gi]
		for i := range g.Params {
			grad := g.Grads[i]
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*grad
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*grad*grad

			mHat := m[i] / bc1
			vHat := v[i] / bc2
			g.Params[i] -= g.lr * g.scaleAt(i) * mHat / (math.Sqrt(vHat) + a.Eps)
		}
	}
}

// Timestep returns the number of updates applied so far.
func (a *Adam) Timestep() int {
	return a.t
}

// ZeroGrads clears every group's gradient buffer.
func (a *Adam) ZeroGrads() {
	for _, g := range a.groups {
		g.ZeroGrads()
	}
}

// Groups returns the optimizer's parameter groups in order.
func (a *Adam) Groups() []*Group {
	return a.groups
}

// NumParamGroups returns the number of parameter groups.
func (a *Adam) NumParamGroups() int {
	return len(a.groups)
}

// LearningRate returns the rate of one parameter group.
func (a *Adam) LearningRate(group int) float64 {
	return a.groups[group].LearningRate()
}

// SetLearningRate replaces the rate of one parameter group.
func (a *Adam) SetLearningRate(group int, lr float64) {
	a.groups[group].SetLearningRate(lr)
}
