package nn

import "github.com/strata-ml/strata/tensor"

// Parameter is a trainable tensor: a layer weight or bias together
// with its accumulated gradient.
//
// Gradients accumulate across Backward calls (a layer shared between
// several graph positions receives contributions from each position)
// and are cleared by the optimizer's ZeroGrad before every batch.
type Parameter struct {
	name  string
	value *tensor.Matrix
	grad  *tensor.Matrix
}

// NewParameter creates a parameter with a zeroed gradient of the same
// shape as value.
func NewParameter(name string, value *tensor.Matrix) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
		grad:  tensor.Zeros(value.Rows(), value.Cols()),
	}
}

// Name returns the parameter name (e.g., "weight", "bias").
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter tensor. Updates happen in place through
// its backing slice.
func (p *Parameter) Value() *tensor.Matrix {
	return p.value
}

// Grad returns the accumulated gradient tensor.
func (p *Parameter) Grad() *tensor.Matrix {
	return p.grad
}

// AddGrad accumulates g into the gradient.
func (p *Parameter) AddGrad(g *tensor.Matrix) {
	if !g.Shape().Equal(p.grad.Shape()) {
		panic(&tensor.ShapeError{Op: "AddGrad", Want: p.grad.Shape(), Got: g.Shape()})
	}
	dst := p.grad.Data()
	src := g.Data()
	for i := range dst {
		dst[i] += src[i]
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	data := p.grad.Data()
	for i := range data {
		data[i] = 0
	}
}
