package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/strata-ml/strata/tensor"
)

// DefaultInitializer is the weight initializer used when a layer does
// not name one.
const DefaultInitializer = "glorot_uniform"

// Initializer fills a freshly allocated weight matrix.
//
// Initializers draw from the provided rng so that model construction
// is deterministic for a fixed seed.
type Initializer interface {
	Name() string
	Fill(w *tensor.Matrix, fanIn, fanOut int, rng *rand.Rand)
}

var initializers = map[string]func() Initializer{
	"glorot_uniform": func() Initializer { return glorotUniform{} },
	"he_normal":      func() Initializer { return heNormal{} },
	"random_normal":  func() Initializer { return randomNormal{} },
	"zeros":          func() Initializer { return zerosInit{} },
	"ones":           func() Initializer { return onesInit{} },
}

// InitializerByName looks up an initializer by identifier.
//
// Returns ErrUnknownIdentifier if the name is not registered.
func InitializerByName(name string) (Initializer, error) {
	ctor, ok := initializers[name]
	if !ok {
		return nil, fmt.Errorf("%w: initializer %q", ErrUnknownIdentifier, name)
	}
	return ctor(), nil
}

// glorotUniform draws from U(-b, b) with b = sqrt(6 / (fanIn + fanOut)).
type glorotUniform struct{}

func (glorotUniform) Name() string { return "glorot_uniform" }

func (glorotUniform) Fill(w *tensor.Matrix, fanIn, fanOut int, rng *rand.Rand) {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	data := w.Data()
	for i := range data {
		data[i] = (rng.Float64()*2.0 - 1.0) * bound
	}
}

// heNormal draws from N(0, sqrt(2 / fanIn)).
type heNormal struct{}

func (heNormal) Name() string { return "he_normal" }

func (heNormal) Fill(w *tensor.Matrix, fanIn, _ int, rng *rand.Rand) {
	std := math.Sqrt(2.0 / float64(fanIn))
	data := w.Data()
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
}

// randomNormal draws from N(0, 0.05).
type randomNormal struct{}

func (randomNormal) Name() string { return "random_normal" }

func (randomNormal) Fill(w *tensor.Matrix, _, _ int, rng *rand.Rand) {
	data := w.Data()
	for i := range data {
		data[i] = rng.NormFloat64() * 0.05
	}
}

type zerosInit struct{}

func (zerosInit) Name() string { return "zeros" }

func (zerosInit) Fill(w *tensor.Matrix, _, _ int, _ *rand.Rand) {
	data := w.Data()
	for i := range data {
		data[i] = 0
	}
}

type onesInit struct{}

func (onesInit) Name() string { return "ones" }

func (onesInit) Fill(w *tensor.Matrix, _, _ int, _ *rand.Rand) {
	data := w.Data()
	for i := range data {
		data[i] = 1
	}
}
