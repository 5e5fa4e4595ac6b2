package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/strata-ml/strata/tensor"
)

// Sequential is a strictly linear chain of layers: one input, one
// output, each layer feeding the next.
//
//	model := nn.NewSequential(
//	    nn.MustDense(512, nn.DenseConfig{InputDim: 784, Activation: "relu"}),
//	    nn.MustDense(512, nn.DenseConfig{Activation: "relu"}),
//	    nn.MustDense(10, nn.DenseConfig{Activation: "softmax"}),
//	)
//	err := model.Build(nn.BuildOptions{Seed: 42})
type Sequential struct {
	layers   []Layer
	inputDim int
	built    bool

	// Per-layer activation caches from the last Forward, consumed by
	// Backward. inputs[i] is the input to layer i, outputs[i] its
	// output.
	inputs  []*tensor.Matrix
	outputs []*tensor.Matrix
}

// NewSequential creates a sequential model from the given layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Add appends a layer. Only valid before Build.
func (s *Sequential) Add(l Layer) {
	if s.built {
		panic("sequential: Add after Build")
	}
	s.layers = append(s.layers, l)
}

// Layers returns the layer chain.
func (s *Sequential) Layers() []Layer {
	return s.layers
}

// Build assigns names, infers widths front to back and initializes
// every layer's parameters from the seed.
//
// The first layer must declare its input dimensionality; width
// conflicts and empty models fail with ErrInvalidTopology.
func (s *Sequential) Build(opts BuildOptions) error {
	if s.built {
		return nil
	}
	if len(s.layers) == 0 {
		return fmt.Errorf("%w: sequential model has no layers", ErrInvalidTopology)
	}

	first, ok := s.layers[0].(*Dense)
	if !ok || first.declared == 0 {
		if !ok {
			// Non-dense first layers cannot declare a width.
			return fmt.Errorf("%w: first layer must be a Dense with InputDim set", ErrInvalidTopology)
		}
		return fmt.Errorf("%w: first layer must declare input dimensionality", ErrInvalidTopology)
	}

	names := assignNames(s.layers)
	if len(names) != len(s.layers) {
		return fmt.Errorf("%w: duplicate layer names", ErrInvalidTopology)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	dim := first.declared
	for _, l := range s.layers {
		if err := l.Build(dim, rng); err != nil {
			return err
		}
		dim = l.OutputDim()
	}

	s.inputDim = first.declared
	s.built = true
	return nil
}

// InputDim returns the model input width.
func (s *Sequential) InputDim() int { return s.inputDim }

// OutputDim returns the model output width.
func (s *Sequential) OutputDim() int {
	if len(s.layers) == 0 {
		return 0
	}
	return s.layers[len(s.layers)-1].OutputDim()
}

// Forward runs the chain, caching per-layer activations for Backward.
func (s *Sequential) Forward(x *tensor.Matrix) *tensor.Matrix {
	if !s.built {
		panic("sequential: Forward before Build")
	}
	s.inputs = s.inputs[:0]
	s.outputs = s.outputs[:0]
	out := x
	for _, l := range s.layers {
		s.inputs = append(s.inputs, out)
		out = l.Forward(out)
		s.outputs = append(s.outputs, out)
	}
	return out
}

// Backward propagates dy back through the chain, accumulating
// parameter gradients. Must follow a Forward on the same batch.
func (s *Sequential) Backward(dy *tensor.Matrix) {
	if len(s.outputs) != len(s.layers) {
		panic("sequential: Backward without matching Forward")
	}
	d := dy
	for i := len(s.layers) - 1; i >= 0; i-- {
		d = s.layers[i].Backward(s.inputs[i], s.outputs[i], d)
	}
}

// Parameters returns all trainable parameters in layer order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range s.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// Penalty sums the regularization penalties of all layers.
func (s *Sequential) Penalty() float64 {
	var sum float64
	for _, l := range s.layers {
		sum += l.Penalty()
	}
	return sum
}

// StateDict exports parameters keyed "<layer>.<param>", e.g.
// "dense.weight", "dense_1.bias".
func (s *Sequential) StateDict() map[string]*tensor.Matrix {
	state := make(map[string]*tensor.Matrix)
	for _, l := range s.layers {
		for name, m := range l.StateDict() {
			state[l.Name()+"."+name] = m
		}
	}
	return state
}

// LoadStateDict restores parameters by layer-name prefix.
func (s *Sequential) LoadStateDict(state map[string]*tensor.Matrix) error {
	for _, l := range s.layers {
		local := make(map[string]*tensor.Matrix)
		prefix := l.Name() + "."
		for key, m := range state {
			if strings.HasPrefix(key, prefix) {
				local[key[len(prefix):]] = m
			}
		}
		if len(local) == 0 && len(l.Parameters()) == 0 {
			continue
		}
		if err := l.LoadStateDict(local); err != nil {
			return fmt.Errorf("load layer %q: %w", l.Name(), err)
		}
	}
	return nil
}

// Spec returns the architecture document for serialization.
func (s *Sequential) Spec() (*Architecture, error) {
	arch := &Architecture{Kind: "sequential"}
	for i, l := range s.layers {
		spec, err := l.Spec()
		if err != nil {
			return nil, err
		}
		if i == 0 && spec.InputDim == 0 {
			spec.InputDim = s.inputDim
		}
		arch.Layers = append(arch.Layers, spec)
	}
	return arch, nil
}
