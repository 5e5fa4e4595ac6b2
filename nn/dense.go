package nn

import (
	"fmt"
	"math/rand"

	"github.com/strata-ml/strata/tensor"
)

// Dense is a fully connected layer: y = act(x @ Wᵀ + b).
//
//   - x is the input with shape [batch, inputDim]
//   - W is the weight matrix with shape [units, inputDim]
//   - b is the bias row with shape [1, units]
//   - y is the output with shape [batch, units]
//
// The first layer of a model must declare InputDim explicitly; every
// later layer infers it from the preceding layer's output width.
type Dense struct {
	name     string
	units    int
	declared int // InputDim from the config, 0 when inferred
	inputDim int // resolved at build time
	act      Activation
	init     Initializer
	reg      Regularizer
	weight   *Parameter
	bias     *Parameter
	built    bool
}

// DenseConfig holds the declarative knobs of a Dense layer. The zero
// value selects a linear activation and the default initializer with
// no regularization.
type DenseConfig struct {
	Name        string
	InputDim    int         // Required for the first layer of a model.
	Activation  string      // Default: "linear".
	Initializer string      // Default: DefaultInitializer.
	Regularizer Regularizer // Optional kernel regularizer, e.g. nn.L2(1e-4).
}

// NewDense creates a Dense layer with the given output width.
//
// Identifier lookups happen here, so a typo in an activation or
// initializer name fails immediately with ErrUnknownIdentifier rather
// than at fit time.
func NewDense(units int, cfg DenseConfig) (*Dense, error) {
	if units <= 0 {
		return nil, fmt.Errorf("dense: units must be > 0, got %d", units)
	}
	if cfg.InputDim < 0 {
		return nil, fmt.Errorf("dense: input dim must be >= 0, got %d", cfg.InputDim)
	}

	actName := cfg.Activation
	if actName == "" {
		actName = "linear"
	}
	act, err := ActivationByName(actName)
	if err != nil {
		return nil, err
	}

	initName := cfg.Initializer
	if initName == "" {
		initName = DefaultInitializer
	}
	init, err := InitializerByName(initName)
	if err != nil {
		return nil, err
	}

	return &Dense{
		name:     cfg.Name,
		units:    units,
		declared: cfg.InputDim,
		act:      act,
		init:     init,
		reg:      cfg.Regularizer,
	}, nil
}

// MustDense is NewDense that panics on error, for declarative model
// literals with known-good identifiers.
func MustDense(units int, cfg DenseConfig) *Dense {
	d, err := NewDense(units, cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the layer name.
func (d *Dense) Name() string { return d.name }

func (d *Dense) setName(name string) { d.name = name }

func (d *Dense) typeTag() string { return "dense" }

// Units returns the output width.
func (d *Dense) Units() int { return d.units }

// OutputDim returns the output width.
func (d *Dense) OutputDim() int { return d.units }

// Activation returns the activation identifier.
func (d *Dense) Activation() string { return d.act.Name() }

// Weight returns the weight parameter (nil before Build).
func (d *Dense) Weight() *Parameter { return d.weight }

// Bias returns the bias parameter (nil before Build).
func (d *Dense) Bias() *Parameter { return d.bias }

// Build materializes weight [units, inputDim] and bias [1, units].
//
// A declared InputDim that disagrees with the inferred one, or a
// shared layer rebuilt at a different width, is an ErrInvalidTopology.
func (d *Dense) Build(inputDim int, rng *rand.Rand) error {
	if inputDim <= 0 {
		return fmt.Errorf("%w: dense %q: input dimensionality %d", ErrInvalidTopology, d.name, inputDim)
	}
	if d.built {
		if inputDim != d.inputDim {
			return fmt.Errorf("%w: shared layer %q built for width %d, reused at width %d",
				ErrInvalidTopology, d.name, d.inputDim, inputDim)
		}
		return nil
	}
	if d.declared != 0 && d.declared != inputDim {
		return fmt.Errorf("%w: dense %q declares input dim %d but receives %d",
			ErrInvalidTopology, d.name, d.declared, inputDim)
	}

	d.inputDim = inputDim
	w := tensor.Zeros(d.units, inputDim)
	d.init.Fill(w, inputDim, d.units, rng)
	d.weight = NewParameter("weight", w)
	d.bias = NewParameter("bias", tensor.Zeros(1, d.units))
	d.built = true
	return nil
}

// Forward computes act(x @ Wᵀ + b).
func (d *Dense) Forward(x *tensor.Matrix) *tensor.Matrix {
	if !d.built {
		panic(fmt.Sprintf("dense %q: Forward before Build", d.name))
	}
	if x.Cols() != d.inputDim {
		panic(&tensor.ShapeError{Op: "Dense.Forward", Want: tensor.Shape{x.Rows(), d.inputDim}, Got: x.Shape()})
	}
	z := x.MulT(d.weight.Value()).AddRow(d.bias.Value())
	return d.act.Forward(z)
}

// Backward accumulates dW = dzᵀ @ x (+ regularizer term) and
// db = column sums of dz, and returns dx = dz @ W.
func (d *Dense) Backward(x, y, dy *tensor.Matrix) *tensor.Matrix {
	dz := d.act.Backward(y, dy)
	d.weight.AddGrad(dz.TMul(x))
	if d.reg != nil {
		d.weight.AddGrad(d.reg.Grad(d.weight.Value()))
	}
	d.bias.AddGrad(dz.ColSums())
	return dz.MatMul(d.weight.Value())
}

// Parameters returns [weight, bias].
func (d *Dense) Parameters() []*Parameter {
	if !d.built {
		return nil
	}
	return []*Parameter{d.weight, d.bias}
}

// Penalty returns the kernel regularization penalty.
func (d *Dense) Penalty() float64 {
	if d.reg == nil || !d.built {
		return 0
	}
	return d.reg.Penalty(d.weight.Value())
}

// StateDict exports {"weight", "bias"}.
func (d *Dense) StateDict() map[string]*tensor.Matrix {
	if !d.built {
		return nil
	}
	return map[string]*tensor.Matrix{
		"weight": d.weight.Value(),
		"bias":   d.bias.Value(),
	}
}

// LoadStateDict restores weight and bias, validating shapes.
func (d *Dense) LoadStateDict(state map[string]*tensor.Matrix) error {
	if !d.built {
		return fmt.Errorf("dense %q: LoadStateDict before Build", d.name)
	}
	for _, param := range []*Parameter{d.weight, d.bias} {
		src, ok := state[param.Name()]
		if !ok {
			return fmt.Errorf("dense %q: missing %s in state dict", d.name, param.Name())
		}
		if !src.Shape().Equal(param.Value().Shape()) {
			return fmt.Errorf("dense %q: %s: %w", d.name, param.Name(),
				&tensor.ShapeError{Op: "LoadStateDict", Want: param.Value().Shape(), Got: src.Shape()})
		}
		copy(param.Value().Data(), src.Data())
	}
	return nil
}

// Spec returns the declarative layer record.
func (d *Dense) Spec() (LayerSpec, error) {
	spec := LayerSpec{
		Type:        "dense",
		Name:        d.name,
		Units:       d.units,
		Activation:  d.act.Name(),
		Initializer: d.init.Name(),
		InputDim:    d.declared,
	}
	if d.reg != nil {
		spec.Regularizer = d.reg.Name()
		spec.RegularizerFactor = d.reg.Factor()
	}
	return spec, nil
}
