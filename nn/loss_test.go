package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/tensor"
)

func TestCategoricalCrossEntropy(t *testing.T) {
	loss := CategoricalCrossEntropy{}

	pred := tensor.New(2, 3, []float64{
		0.7, 0.2, 0.1,
		0.1, 0.1, 0.8,
	})
	target := tensor.New(2, 3, []float64{
		1, 0, 0,
		0, 0, 1,
	})

	want := -(math.Log(0.7) + math.Log(0.8)) / 2
	assert.InDelta(t, want, loss.Loss(pred, target), 1e-9)

	grad := loss.Gradient(pred, target)
	assert.InDelta(t, (0.7-1.0)/2, grad.At(0, 0), 1e-12)
	assert.InDelta(t, 0.2/2, grad.At(0, 1), 1e-12)
}

func TestCategoricalCrossEntropyPerfectPrediction(t *testing.T) {
	loss := CategoricalCrossEntropy{}
	pred := tensor.New(1, 2, []float64{1, 0})
	target := tensor.New(1, 2, []float64{1, 0})

	// Zero probabilities in non-target classes and a saturated target
	// must stay finite.
	assert.InDelta(t, 0.0, loss.Loss(pred, target), 1e-9)
}

func TestMeanSquaredError(t *testing.T) {
	loss := MeanSquaredError{}

	pred := tensor.New(1, 2, []float64{1, 3})
	target := tensor.New(1, 2, []float64{0, 1})

	assert.InDelta(t, (1.0+4.0)/2, loss.Loss(pred, target), 1e-12)

	grad := loss.Gradient(pred, target)
	assert.InDelta(t, 2.0*1.0/2, grad.At(0, 0), 1e-12)
	assert.InDelta(t, 2.0*2.0/2, grad.At(0, 1), 1e-12)
}

func TestLossByName(t *testing.T) {
	for name, want := range map[string]string{
		"categorical_crossentropy": "categorical_crossentropy",
		"mean_squared_error":       "mean_squared_error",
		"mse":                      "mean_squared_error",
	} {
		loss, err := LossByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, loss.Name())
	}

	_, err := LossByName("hinge")
	assert.ErrorIs(t, err, ErrUnknownIdentifier)
}

func TestLossShapeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		CategoricalCrossEntropy{}.Loss(tensor.Zeros(2, 3), tensor.Zeros(2, 4))
	})
}
