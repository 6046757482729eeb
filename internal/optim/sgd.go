package optim

import (
	"fmt"
)

// SGD implements stochastic gradient descent with momentum over parameter
// groups.
type SGD struct {
	groups   []*Group
	momentum float64
	velocity [][]float64
}

// NewSGD creates an SGD optimizer. Momentum must be in [0, 1); zero disables
// it.
func NewSGD(groups []*Group, momentum float64) (*SGD, error) {
	if err := validateGroups(groups); err != nil {
		return nil, err
	}
	if momentum < 0 || momentum >= 1 {
		return nil, fmt.Errorf("failed to create optimizer: momentum %g must be in [0, 1)", momentum)
	}

	velocity := make([][]float64, len(groups))
	for i, g := range groups {
		velocity[i] = make([]float64, len(g.Params))
	}
	return &SGD{
		groups:   groups,
		momentum: momentum,
		velocity: velocity,
	}, nil
}

// Step folds the accumulated gradients into every group's parameters.
func (s *SGD) Step() {
	for gi, g := range s.groups {
		vel := s.velocity[gi]
		for i := range g.Params {
			v := s.momentum*vel[i] - g.lr*g.scaleAt(i)*g.Grads[i]
			vel[i] = v
			g.Params[i] += v
		}
	}
}

// ZeroGrads clears every group's gradient buffer.
func (s *SGD) ZeroGrads() {
	for _, g := range s.groups {
		g.ZeroGrads()
	}
}

// Groups returns the optimizer's parameter groups in order.
func (s *SGD) Groups() []*Group {
	return s.groups
}

// NumParamGroups returns the number of parameter groups.
func (s *SGD) NumParamGroups() int {
	return len(s.groups)
}

// LearningRate returns the rate of one parameter group.
func (s *SGD) LearningRate(group int) float64 {
	return s.groups[group].LearningRate()
}

// SetLearningRate replaces the rate of one parameter group.
func (s *SGD) SetLearningRate(group int, lr float64) {
	s.groups[group].SetLearningRate(lr)
}
