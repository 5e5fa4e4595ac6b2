package nn

import (
	"fmt"
	"math"

	"github.com/strata-ml/strata/tensor"
)

// DefaultRegularizerFactor is the factor applied when a regularizer is
// selected by bare identifier ("l1", "l2") without an explicit factor.
const DefaultRegularizerFactor = 0.01

// Regularizer adds a weight penalty to the training loss and the
// corresponding term to the weight gradient.
//
// Regularizers are attached per layer at construction time and apply
// to the kernel (weight matrix) only, not the bias.
type Regularizer interface {
	Name() string
	Factor() float64
	Penalty(w *tensor.Matrix) float64
	Grad(w *tensor.Matrix) *tensor.Matrix
}

// RegularizerByName looks up a regularizer by bare identifier with the
// default factor. An empty name means no regularization (nil, nil).
//
// Returns ErrUnknownIdentifier if the name is not registered.
func RegularizerByName(name string) (Regularizer, error) {
	switch name {
	case "":
		return nil, nil
	case "l1":
		return L1(DefaultRegularizerFactor), nil
	case "l2":
		return L2(DefaultRegularizerFactor), nil
	default:
		return nil, fmt.Errorf("%w: regularizer %q", ErrUnknownIdentifier, name)
	}
}

// L1 returns an L1 (lasso) regularizer: penalty = factor * Σ|w|.
func L1(factor float64) Regularizer {
	return l1{factor: factor}
}

// L2 returns an L2 (ridge) regularizer: penalty = factor * Σw².
func L2(factor float64) Regularizer {
	return l2{factor: factor}
}

type l1 struct {
	factor float64
}

func (r l1) Name() string    { return "l1" }
func (r l1) Factor() float64 { return r.factor }

func (r l1) Penalty(w *tensor.Matrix) float64 {
	var sum float64
	for _, v := range w.Data() {
		sum += math.Abs(v)
	}
	return r.factor * sum
}

func (r l1) Grad(w *tensor.Matrix) *tensor.Matrix {
	return w.Apply(func(v float64) float64 {
		switch {
		case v > 0:
			return r.factor
		case v < 0:
			return -r.factor
		default:
			return 0
		}
	})
}

type l2 struct {
	factor float64
}

func (r l2) Name() string    { return "l2" }
func (r l2) Factor() float64 { return r.factor }

func (r l2) Penalty(w *tensor.Matrix) float64 {
	var sum float64
	for _, v := range w.Data() {
		sum += v * v
	}
	return r.factor * sum
}

func (r l2) Grad(w *tensor.Matrix) *tensor.Matrix {
	return w.Scale(2 * r.factor)
}
