package nn

import (
	"fmt"
	"math"

	"github.com/strata-ml/strata/tensor"
)

// Activation is an element-wise (or row-wise, for softmax) nonlinearity
// applied after a layer's affine transform.
//
// Backward receives the activation output y and the loss gradient dy
// with respect to y, and returns the gradient with respect to the
// pre-activation z. All built-in derivatives are expressed in terms of
// the output, so no pre-activation cache is needed.
type Activation interface {
	Name() string
	Forward(z *tensor.Matrix) *tensor.Matrix
	Backward(y, dy *tensor.Matrix) *tensor.Matrix
}

// activations is the closed identifier registry.
var activations = map[string]func() Activation{
	"linear":  func() Activation { return linear{} },
	"relu":    func() Activation { return relu{} },
	"sigmoid": func() Activation { return sigmoid{} },
	"tanh":    func() Activation { return tanhAct{} },
	"softmax": func() Activation { return softmax{} },
}

// ActivationByName looks up an activation by identifier.
//
// Returns ErrUnknownIdentifier if the name is not registered.
func ActivationByName(name string) (Activation, error) {
	ctor, ok := activations[name]
	if !ok {
		return nil, fmt.Errorf("%w: activation %q", ErrUnknownIdentifier, name)
	}
	return ctor(), nil
}

type linear struct{}

func (linear) Name() string { return "linear" }

func (linear) Forward(z *tensor.Matrix) *tensor.Matrix { return z }

func (linear) Backward(_, dy *tensor.Matrix) *tensor.Matrix { return dy }

type relu struct{}

func (relu) Name() string { return "relu" }

func (relu) Forward(z *tensor.Matrix) *tensor.Matrix {
	return z.Apply(func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// y > 0 iff z > 0, so the mask can be taken from the output.
func (relu) Backward(y, dy *tensor.Matrix) *tensor.Matrix {
	mask := y.Apply(func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
	return dy.MulElem(mask)
}

type sigmoid struct{}

func (sigmoid) Name() string { return "sigmoid" }

func (sigmoid) Forward(z *tensor.Matrix) *tensor.Matrix {
	return z.Apply(func(v float64) float64 {
		return 1.0 / (1.0 + math.Exp(-v))
	})
}

// dσ/dz = y(1-y)
func (sigmoid) Backward(y, dy *tensor.Matrix) *tensor.Matrix {
	deriv := y.Apply(func(v float64) float64 { return v * (1 - v) })
	return dy.MulElem(deriv)
}

type tanhAct struct{}

func (tanhAct) Name() string { return "tanh" }

func (tanhAct) Forward(z *tensor.Matrix) *tensor.Matrix {
	return z.Apply(math.Tanh)
}

// d tanh/dz = 1 - y²
func (tanhAct) Backward(y, dy *tensor.Matrix) *tensor.Matrix {
	deriv := y.Apply(func(v float64) float64 { return 1 - v*v })
	return dy.MulElem(deriv)
}

// softmax normalizes each row into a probability distribution.
//
// Backward passes dy through unchanged: the categorical cross-entropy
// loss produces its gradient directly with respect to the pre-softmax
// logits (pred - target), which is the standard fused formulation.
// Pair softmax output layers with the categorical cross-entropy loss.
type softmax struct{}

func (softmax) Name() string { return "softmax" }

func (softmax) Forward(z *tensor.Matrix) *tensor.Matrix {
	out := z.Clone()
	data := out.Data()
	rows, cols := out.Rows(), out.Cols()
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		for j, v := range row {
			e := math.Exp(v - maxV)
			row[j] = e
			sum += e
		}
		for j := range row {
			row[j] /= sum
		}
	}
	return out
}

func (softmax) Backward(_, dy *tensor.Matrix) *tensor.Matrix { return dy }
