package nn

import (
	"fmt"
	"math"

	"github.com/strata-ml/strata/tensor"
)

// Loss scores predictions against targets and provides the gradient
// that starts backpropagation.
//
// Both pred and target are [batch, outputDim]; targets for
// classification are one-hot rows.
type Loss interface {
	Name() string
	Loss(pred, target *tensor.Matrix) float64
	Gradient(pred, target *tensor.Matrix) *tensor.Matrix
}

var losses = map[string]func() Loss{
	"categorical_crossentropy": func() Loss { return CategoricalCrossEntropy{} },
	"mean_squared_error":       func() Loss { return MeanSquaredError{} },
	"mse":                      func() Loss { return MeanSquaredError{} },
}

// LossByName looks up a loss by identifier.
//
// Returns ErrUnknownIdentifier if the name is not registered.
func LossByName(name string) (Loss, error) {
	ctor, ok := losses[name]
	if !ok {
		return nil, fmt.Errorf("%w: loss %q", ErrUnknownIdentifier, name)
	}
	return ctor(), nil
}

// epsLog keeps log() off exact zeros from saturated softmax outputs.
const epsLog = 1e-12

// CategoricalCrossEntropy is the multi-class classification loss:
//
//	L = -1/batch Σ_rows Σ_classes target * log(pred)
//
// Its Gradient is taken with respect to the logits feeding a final
// softmax: (pred - target) / batch, the standard fused
// softmax-cross-entropy formulation. Use it with a softmax output
// layer.
type CategoricalCrossEntropy struct{}

// Name returns "categorical_crossentropy".
func (CategoricalCrossEntropy) Name() string { return "categorical_crossentropy" }

// Loss computes the mean negative log-likelihood over the batch.
func (CategoricalCrossEntropy) Loss(pred, target *tensor.Matrix) float64 {
	mustMatchLoss("categorical_crossentropy", pred, target)
	p := pred.Data()
	t := target.Data()
	var sum float64
	for i := range p {
		if t[i] != 0 {
			sum -= t[i] * math.Log(p[i]+epsLog)
		}
	}
	return sum / float64(pred.Rows())
}

// Gradient returns (pred - target) / batch, with respect to the
// pre-softmax logits.
func (CategoricalCrossEntropy) Gradient(pred, target *tensor.Matrix) *tensor.Matrix {
	mustMatchLoss("categorical_crossentropy", pred, target)
	return pred.Sub(target).Scale(1.0 / float64(pred.Rows()))
}

// MeanSquaredError is the regression loss: mean((pred - target)²) over
// all entries.
type MeanSquaredError struct{}

// Name returns "mean_squared_error".
func (MeanSquaredError) Name() string { return "mean_squared_error" }

// Loss computes the mean squared difference.
func (MeanSquaredError) Loss(pred, target *tensor.Matrix) float64 {
	mustMatchLoss("mean_squared_error", pred, target)
	p := pred.Data()
	t := target.Data()
	var sum float64
	for i := range p {
		d := p[i] - t[i]
		sum += d * d
	}
	return sum / float64(len(p))
}

// Gradient returns 2(pred - target) / n where n counts all entries.
func (MeanSquaredError) Gradient(pred, target *tensor.Matrix) *tensor.Matrix {
	mustMatchLoss("mean_squared_error", pred, target)
	n := float64(pred.Rows() * pred.Cols())
	return pred.Sub(target).Scale(2.0 / n)
}

func mustMatchLoss(op string, pred, target *tensor.Matrix) {
	if !pred.Shape().Equal(target.Shape()) {
		panic(&tensor.ShapeError{Op: op, Want: pred.Shape(), Got: target.Shape()})
	}
}
