package nn

import (
	"fmt"
	"math/rand"

	"github.com/strata-ml/strata/tensor"
)

// Layer is a single transformation in a model.
//
// A layer is constructed declaratively (units, identifiers) and
// materializes its parameters when Build is called with the input
// width the surrounding model inferred for it. Build must be called
// exactly once per distinct width; calling it again with the same
// width is a no-op so that a layer shared between several graph
// positions builds once.
//
// Forward is pure with respect to the layer: activations are not
// cached inside the layer, the owning model passes the cached input x
// and output y back into Backward. This is what makes weight sharing
// sound: the same layer can appear at several positions of a graph
// and receive the correct per-position caches.
type Layer interface {
	// Name returns the unique layer name within its model. Empty until
	// the model build assigns one (or the user set one explicitly).
	Name() string

	// OutputDim returns the layer's output width. Valid after Build;
	// for layers with a declared width (Dense units) it is valid
	// immediately.
	OutputDim() int

	// Build materializes parameters for the given input width.
	Build(inputDim int, rng *rand.Rand) error

	// Forward computes the layer output for a [batch, inputDim] input.
	Forward(x *tensor.Matrix) *tensor.Matrix

	// Backward consumes the cached input x, cached output y and the
	// loss gradient dy with respect to y. It accumulates parameter
	// gradients in place and returns the gradient with respect to x.
	Backward(x, y, dy *tensor.Matrix) *tensor.Matrix

	// Parameters returns the trainable parameters, empty for
	// parameter-free layers.
	Parameters() []*Parameter

	// Penalty returns the layer's regularization penalty for the
	// current weights (0 when no regularizer is attached).
	Penalty() float64

	// StateDict exports parameters keyed by local name ("weight",
	// "bias"); LoadStateDict restores them, rejecting mismatched
	// shapes with an error wrapping tensor.ErrShapeMismatch.
	StateDict() map[string]*tensor.Matrix
	LoadStateDict(state map[string]*tensor.Matrix) error

	// Spec returns the declarative description of the layer, or
	// ErrNonSerializable for layers with custom logic.
	Spec() (LayerSpec, error)

	// setName and typeTag keep the layer set closed: model builders
	// assign deterministic names ("dense", "dense_1", ...) from the
	// type tag.
	setName(name string)
	typeTag() string
}

// Network is a built model: Sequential or GraphNet.
//
// Forward caches per-layer activations; Backward consumes those caches
// and accumulates parameter gradients. The train package wraps a
// Network with a compiled training configuration.
type Network interface {
	Forward(x *tensor.Matrix) *tensor.Matrix
	Backward(dy *tensor.Matrix)
	Parameters() []*Parameter
	InputDim() int
	OutputDim() int
	Penalty() float64
	StateDict() map[string]*tensor.Matrix
	LoadStateDict(state map[string]*tensor.Matrix) error
	Spec() (*Architecture, error)
}

// BuildOptions configures model building.
type BuildOptions struct {
	// Seed drives weight initialization. The same seed and
	// architecture always produce the same initial parameters.
	Seed int64
}

// assignNames gives every unnamed layer a deterministic name derived
// from its type tag: "dense", "dense_1", "dense_2", ... in model
// order. Returns the set of names for duplicate detection.
func assignNames(layers []Layer) map[string]bool {
	counts := make(map[string]int)
	names := make(map[string]bool)
	for _, l := range layers {
		if l.Name() == "" {
			tag := l.typeTag()
			n := counts[tag]
			counts[tag]++
			if n == 0 {
				l.setName(tag)
			} else {
				l.setName(fmt.Sprintf("%s_%d", tag, n))
			}
		}
		names[l.Name()] = true
	}
	return names
}
