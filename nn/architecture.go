package nn

import (
	"encoding/json"
	"fmt"
)

// Architecture is the serializable description of a model: an ordered
// list of declarative layer records, plus node wiring for graph
// models. It round-trips losslessly through JSON for every model built
// without Lambda layers.
type Architecture struct {
	Kind   string      `json:"kind"` // "sequential" or "graph"
	Layers []LayerSpec `json:"layers"`
	Nodes  []NodeSpec  `json:"nodes,omitempty"`  // graph wiring, topological order
	Output int         `json:"output,omitempty"` // graph output node index
}

// LayerSpec is one layer record.
type LayerSpec struct {
	Type              string  `json:"type"`
	Name              string  `json:"name"`
	Units             int     `json:"units"`
	Activation        string  `json:"activation"`
	Initializer       string  `json:"initializer"`
	Regularizer       string  `json:"regularizer,omitempty"`
	RegularizerFactor float64 `json:"regularizer_factor,omitempty"`
	InputDim          int     `json:"input_dim,omitempty"` // first layer of a sequential model
}

// NodeSpec is one graph node record. Layer nodes reference a LayerSpec
// by name; a shared layer is one record referenced from several nodes.
type NodeSpec struct {
	Kind   string `json:"kind"` // "input", "layer" or "add"
	Dim    int    `json:"dim,omitempty"`
	Layer  string `json:"layer,omitempty"`
	Inputs []int  `json:"inputs,omitempty"`
}

// MarshalArchitecture serializes a model's architecture to JSON.
//
// Fails with ErrNonSerializable if the model contains a Lambda layer;
// such models must be rebuilt from their construction code (their
// parameters can still be saved and loaded).
func MarshalArchitecture(net Network) ([]byte, error) {
	arch, err := net.Spec()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(arch, "", "  ")
}

// UnmarshalArchitecture reconstructs a built model shell from an
// architecture document.
//
// The shell has freshly initialized parameters (deterministic, seed
// 0); callers normally restore trained parameters into it right after,
// via train.LoadWeights.
func UnmarshalArchitecture(data []byte) (Network, error) {
	var arch Architecture
	if err := json.Unmarshal(data, &arch); err != nil {
		return nil, fmt.Errorf("parse architecture: %w", err)
	}

	switch arch.Kind {
	case "sequential":
		return buildSequential(&arch)
	case "graph":
		return buildGraph(&arch)
	default:
		return nil, fmt.Errorf("%w: architecture kind %q", ErrUnknownIdentifier, arch.Kind)
	}
}

func buildSequential(arch *Architecture) (Network, error) {
	seq := NewSequential()
	for i, spec := range arch.Layers {
		l, err := layerFromSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		seq.Add(l)
	}
	if err := seq.Build(BuildOptions{}); err != nil {
		return nil, err
	}
	return seq, nil
}

func buildGraph(arch *Architecture) (Network, error) {
	byName := make(map[string]Layer, len(arch.Layers))
	for i, spec := range arch.Layers {
		l, err := layerFromSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		byName[spec.Name] = l
	}

	g := NewGraph()
	for i, spec := range arch.Nodes {
		var got Node
		switch spec.Kind {
		case "input":
			got = g.Input(spec.Dim)
		case "layer":
			l, ok := byName[spec.Layer]
			if !ok {
				return nil, fmt.Errorf("node %d references unknown layer %q", i, spec.Layer)
			}
			if len(spec.Inputs) != 1 {
				return nil, fmt.Errorf("%w: layer node %d has %d inputs", ErrInvalidTopology, i, len(spec.Inputs))
			}
			got = g.Apply(l, Node(spec.Inputs[0]))
		case "add":
			if len(spec.Inputs) != 2 {
				return nil, fmt.Errorf("%w: add node %d has %d inputs", ErrInvalidTopology, i, len(spec.Inputs))
			}
			got = g.Add(Node(spec.Inputs[0]), Node(spec.Inputs[1]))
		default:
			return nil, fmt.Errorf("%w: node kind %q", ErrUnknownIdentifier, spec.Kind)
		}
		if int(got) != i {
			return nil, fmt.Errorf("%w: node %d out of order", ErrInvalidTopology, i)
		}
	}
	return g.Build(Node(arch.Output), BuildOptions{})
}

func layerFromSpec(spec LayerSpec) (Layer, error) {
	switch spec.Type {
	case "dense":
		var reg Regularizer
		switch spec.Regularizer {
		case "":
		case "l1":
			reg = L1(regFactor(spec))
		case "l2":
			reg = L2(regFactor(spec))
		default:
			return nil, fmt.Errorf("%w: regularizer %q", ErrUnknownIdentifier, spec.Regularizer)
		}
		return NewDense(spec.Units, DenseConfig{
			Name:        spec.Name,
			InputDim:    spec.InputDim,
			Activation:  spec.Activation,
			Initializer: spec.Initializer,
			Regularizer: reg,
		})
	default:
		return nil, fmt.Errorf("%w: layer type %q", ErrUnknownIdentifier, spec.Type)
	}
}

func regFactor(spec LayerSpec) float64 {
	if spec.RegularizerFactor != 0 {
		return spec.RegularizerFactor
	}
	return DefaultRegularizerFactor
}
