package optim

import (
	"fmt"
)

// Group is one independently rated set of parameters. The training loop
// fills Grads between steps; the optimizer folds them into Params using the
// group's current learning rate.
type Group struct {
	Name   string
	Params []float64
	Grads  []float64

	lr    float64
	scale []float64
}

// NewGroup creates a parameter group with a gradient buffer of matching
// length.
func NewGroup(name string, params []float64, lr float64) *Group {
	return &Group{
		Name:   name,
		Params: params,
		Grads:  make([]float64, len(params)),
		lr:     lr,
	}
}

// LearningRate returns the group's current rate.
func (g *Group) LearningRate() float64 {
	return g.lr
}

// SetLearningRate replaces the group's current rate.
func (g *Group) SetLearningRate(lr float64) {
	g.lr = lr
}

// SetScale installs a per-parameter multiplier applied on top of the
// group's rate. Pass nil to clear it.
func (g *Group) SetScale(scale []float64) error {
	if scale != nil && len(scale) != len(g.Params) {
		return fmt.Errorf("failed to set scale: length %d does not match %d parameters", len(scale), len(g.Params))
	}
	g.scale = scale
	return nil
}

// ZeroGrads clears the accumulated gradients.
func (g *Group) ZeroGrads() {
	for i := range g.Grads {
		g.Grads[i] = 0
	}
}

func (g *Group) scaleAt(i int) float64 {
	if g.scale == nil {
		return 1
	}
	return g.scale[i]
}

// validateGroups checks the group list shared by the optimizers.
func validateGroups(groups []*Group) error {
	if len(groups) == 0 {
		return fmt.Errorf("failed to create optimizer: no parameter groups")
	}
	for i, g := range groups {
		if g == nil {
			return fmt.Errorf("failed to create optimizer: group %d is nil", i)
		}
		if len(g.Grads) != len(g.Params) {
			return fmt.Errorf("failed to create optimizer: group %d has %d gradients for %d parameters",
				i, len(g.Grads), len(g.Params))
		}
	}
	return nil
}
