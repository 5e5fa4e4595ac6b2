package nn

import (
	"fmt"
	"math/rand"

	"github.com/strata-ml/strata/tensor"
)

// Lambda wraps an arbitrary function as a parameter-free layer.
//
// Lambda layers carry non-declarative logic and therefore cannot be
// described by an architecture document: Spec returns
// ErrNonSerializable, and a model containing one must be reconstructed
// from its original construction code. Parameter save/load of the
// surrounding model is unaffected.
type Lambda struct {
	name     string
	outDim   int // 0 means same as input
	inputDim int
	fn       func(x *tensor.Matrix) *tensor.Matrix
	backward func(x, y, dy *tensor.Matrix) *tensor.Matrix
}

// LambdaConfig holds the optional knobs of a Lambda layer.
type LambdaConfig struct {
	Name string

	// OutputDim declares the output width; 0 means the function
	// preserves the input width.
	OutputDim int

	// Backward propagates the loss gradient through fn. When nil the
	// layer is forward-only and Backward panics; forward-only lambdas
	// are fine for inference-time transforms but cannot sit on a
	// trained path.
	Backward func(x, y, dy *tensor.Matrix) *tensor.Matrix
}

// NewLambda creates a Lambda layer applying fn.
func NewLambda(fn func(x *tensor.Matrix) *tensor.Matrix, cfg LambdaConfig) *Lambda {
	return &Lambda{
		name:     cfg.Name,
		outDim:   cfg.OutputDim,
		fn:       fn,
		backward: cfg.Backward,
	}
}

// Name returns the layer name.
func (l *Lambda) Name() string { return l.name }

func (l *Lambda) setName(name string) { l.name = name }

func (l *Lambda) typeTag() string { return "lambda" }

// OutputDim returns the declared output width, or the input width
// after Build when none was declared.
func (l *Lambda) OutputDim() int {
	if l.outDim != 0 {
		return l.outDim
	}
	return l.inputDim
}

// Build records the input width. Lambdas have no parameters.
func (l *Lambda) Build(inputDim int, _ *rand.Rand) error {
	if inputDim <= 0 {
		return fmt.Errorf("%w: lambda %q: input dimensionality %d", ErrInvalidTopology, l.name, inputDim)
	}
	l.inputDim = inputDim
	return nil
}

// Forward applies the wrapped function.
func (l *Lambda) Forward(x *tensor.Matrix) *tensor.Matrix {
	return l.fn(x)
}

// Backward delegates to the configured backward function.
func (l *Lambda) Backward(x, y, dy *tensor.Matrix) *tensor.Matrix {
	if l.backward == nil {
		panic(fmt.Sprintf("lambda %q: no backward function configured", l.name))
	}
	return l.backward(x, y, dy)
}

// Parameters returns nil; lambdas are parameter-free.
func (l *Lambda) Parameters() []*Parameter { return nil }

// Penalty returns 0.
func (l *Lambda) Penalty() float64 { return 0 }

// StateDict returns nil; there is nothing to persist.
func (l *Lambda) StateDict() map[string]*tensor.Matrix { return nil }

// LoadStateDict is a no-op.
func (l *Lambda) LoadStateDict(map[string]*tensor.Matrix) error { return nil }

// Spec always fails: lambda logic is not declarative.
func (l *Lambda) Spec() (LayerSpec, error) {
	return LayerSpec{}, fmt.Errorf("layer %q: %w", l.name, ErrNonSerializable)
}
