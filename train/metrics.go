package train

import (
	"fmt"

	"github.com/strata-ml/strata/data"
	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/tensor"
)

// Metric scores a batch of predictions against targets, averaged over
// the batch.
type Metric func(pred, target *tensor.Matrix) float64

var metrics = map[string]Metric{
	"accuracy": accuracy,
	"mse":      meanSquaredError,
}

// metricByName looks up a metric by identifier.
func metricByName(name string) (Metric, error) {
	metric, ok := metrics[name]
	if !ok {
		return nil, fmt.Errorf("%w: metric %q", nn.ErrUnknownIdentifier, name)
	}
	return metric, nil
}

// accuracy is the fraction of rows whose predicted class (argmax)
// matches the target class.
func accuracy(pred, target *tensor.Matrix) float64 {
	n := pred.Rows()
	if n == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if data.ArgMax(pred, i) == data.ArgMax(target, i) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// meanSquaredError mirrors the loss of the same name as a metric.
func meanSquaredError(pred, target *tensor.Matrix) float64 {
	return nn.MeanSquaredError{}.Loss(pred, target)
}
