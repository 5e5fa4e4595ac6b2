package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/strata-ml/strata/tensor"
)

// Node is a handle to a tensor position in a Graph. Nodes are arena
// indices, not object references: shared layers are a single layer
// value referenced from several nodes.
type Node int

type nodeKind int

const (
	nodeInput nodeKind = iota
	nodeLayer
	nodeAdd
)

type graphNode struct {
	kind   nodeKind
	layer  Layer // nodeLayer only
	inputs []Node
	dim    int // input width for nodeInput, resolved output width otherwise
}

// Graph builds models in the functional style: layers are applied to
// explicit node handles, allowing residual connections, shared
// weights, and any other directed acyclic wiring.
//
// The graph style is a strict superset of Sequential: a linear chain
// of Apply calls produces an equivalent model (same output shape, same
// parameter count).
type Graph struct {
	nodes []graphNode
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Input declares an input tensor of the given width and returns its
// node handle.
func (g *Graph) Input(dim int) Node {
	g.nodes = append(g.nodes, graphNode{kind: nodeInput, dim: dim})
	return Node(len(g.nodes) - 1)
}

// Apply applies a layer to a node and returns the result node.
// Applying the same layer value to several nodes shares its weights
// across those positions.
func (g *Graph) Apply(l Layer, in Node) Node {
	g.mustExist("Apply", in)
	if l == nil {
		panic("graph: Apply with nil layer")
	}
	g.nodes = append(g.nodes, graphNode{kind: nodeLayer, layer: l, inputs: []Node{in}})
	return Node(len(g.nodes) - 1)
}

// Add joins two nodes element-wise (a residual connection). Both must
// have the same width, checked at Build.
func (g *Graph) Add(a, b Node) Node {
	g.mustExist("Add", a)
	g.mustExist("Add", b)
	g.nodes = append(g.nodes, graphNode{kind: nodeAdd, inputs: []Node{a, b}})
	return Node(len(g.nodes) - 1)
}

func (g *Graph) mustExist(op string, n Node) {
	if n < 0 || int(n) >= len(g.nodes) {
		panic(fmt.Sprintf("graph: %s with unknown node %d", op, n))
	}
}

// Build validates the wiring and materializes parameters, returning a
// runnable network computing the given output node.
//
// Validation failures (a cycle, no reachable input, more than one
// reachable input, an input dimension <= 0, or mismatched widths at an
// Add join) return ErrInvalidTopology. Nodes that do not contribute
// to the output are excluded from the built network.
func (g *Graph) Build(output Node, opts BuildOptions) (*GraphNet, error) {
	if output < 0 || int(output) >= len(g.nodes) {
		return nil, fmt.Errorf("%w: output node %d does not exist", ErrInvalidTopology, output)
	}

	reachable, err := g.reach(output)
	if err != nil {
		return nil, err
	}

	// Arena indices only ever point backwards when built through the
	// public API, so ascending index order is a topological order. The
	// cycle check in reach guards hand-constructed wiring.
	var order []Node
	var inputs []Node
	for i := range g.nodes {
		if !reachable[i] {
			continue
		}
		n := Node(i)
		order = append(order, n)
		if g.nodes[i].kind == nodeInput {
			inputs = append(inputs, n)
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: output is not reachable from any input", ErrInvalidTopology)
	}
	if len(inputs) > 1 {
		return nil, fmt.Errorf("%w: %d inputs feed the output, expected exactly one", ErrInvalidTopology, len(inputs))
	}
	input := inputs[0]
	if g.nodes[input].dim <= 0 {
		return nil, fmt.Errorf("%w: input dimensionality %d", ErrInvalidTopology, g.nodes[input].dim)
	}

	// Distinct layers in first-use order; a shared layer appears once.
	var layers []Layer
	seen := make(map[Layer]bool)
	for _, n := range order {
		if l := g.nodes[n].layer; l != nil && !seen[l] {
			seen[l] = true
			layers = append(layers, l)
		}
	}
	names := assignNames(layers)
	if len(names) != len(layers) {
		return nil, fmt.Errorf("%w: duplicate layer names", ErrInvalidTopology)
	}

	// Resolve widths and build parameters in topological order.
	rng := rand.New(rand.NewSource(opts.Seed))
	for _, n := range order {
		node := &g.nodes[n]
		switch node.kind {
		case nodeInput:
			// dim already set
		case nodeLayer:
			inDim := g.nodes[node.inputs[0]].dim
			if err := node.layer.Build(inDim, rng); err != nil {
				return nil, err
			}
			node.dim = node.layer.OutputDim()
		case nodeAdd:
			a, b := g.nodes[node.inputs[0]].dim, g.nodes[node.inputs[1]].dim
			if a != b {
				return nil, fmt.Errorf("%w: add join of widths %d and %d", ErrInvalidTopology, a, b)
			}
			node.dim = a
		}
	}

	return &GraphNet{
		nodes:     g.nodes,
		order:     order,
		input:     input,
		output:    output,
		layers:    layers,
		inputDim:  g.nodes[input].dim,
		outputDim: g.nodes[output].dim,
	}, nil
}

// reach returns the set of nodes the output depends on, failing with
// ErrInvalidTopology if the dependency walk finds a cycle.
func (g *Graph) reach(output Node) ([]bool, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, len(g.nodes))
	reachable := make([]bool, len(g.nodes))

	var visit func(n Node) error
	visit = func(n Node) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("%w: cycle through node %d", ErrInvalidTopology, n)
		case done:
			return nil
		}
		state[n] = visiting
		for _, in := range g.nodes[n].inputs {
			if err := visit(in); err != nil {
				return err
			}
		}
		state[n] = done
		reachable[n] = true
		return nil
	}

	if err := visit(output); err != nil {
		return nil, err
	}
	return reachable, nil
}

// GraphNet is a built functional model.
type GraphNet struct {
	nodes     []graphNode
	order     []Node
	input     Node
	output    Node
	layers    []Layer
	inputDim  int
	outputDim int

	// Per-node value cache from the last Forward.
	values []*tensor.Matrix
}

// InputDim returns the model input width.
func (n *GraphNet) InputDim() int { return n.inputDim }

// OutputDim returns the model output width.
func (n *GraphNet) OutputDim() int { return n.outputDim }

// Layers returns the distinct layers in first-use order.
func (n *GraphNet) Layers() []Layer { return n.layers }

// Forward evaluates the graph in topological order, caching every
// node's value for Backward.
func (n *GraphNet) Forward(x *tensor.Matrix) *tensor.Matrix {
	n.values = make([]*tensor.Matrix, len(n.nodes))
	n.values[n.input] = x
	for _, id := range n.order {
		node := n.nodes[id]
		switch node.kind {
		case nodeLayer:
			n.values[id] = node.layer.Forward(n.values[node.inputs[0]])
		case nodeAdd:
			n.values[id] = n.values[node.inputs[0]].Add(n.values[node.inputs[1]])
		}
	}
	return n.values[n.output]
}

// Backward walks the graph in reverse topological order. Gradients sum
// where a node fans out to several consumers, which is also what makes
// shared layers accumulate contributions from every position they are
// applied at.
func (n *GraphNet) Backward(dy *tensor.Matrix) {
	if n.values == nil {
		panic("graph: Backward without matching Forward")
	}
	grads := make([]*tensor.Matrix, len(n.nodes))
	grads[n.output] = dy

	accum := func(id Node, g *tensor.Matrix) {
		if grads[id] == nil {
			grads[id] = g
			return
		}
		grads[id] = grads[id].Add(g)
	}

	for i := len(n.order) - 1; i >= 0; i-- {
		id := n.order[i]
		g := grads[id]
		if g == nil {
			continue
		}
		node := n.nodes[id]
		switch node.kind {
		case nodeLayer:
			dx := node.layer.Backward(n.values[node.inputs[0]], n.values[id], g)
			accum(node.inputs[0], dx)
		case nodeAdd:
			accum(node.inputs[0], g)
			accum(node.inputs[1], g)
		}
	}
}

// Parameters returns the parameters of the distinct layers; a shared
// layer contributes its parameters once.
func (n *GraphNet) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range n.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// Penalty sums the regularization penalties of the distinct layers.
func (n *GraphNet) Penalty() float64 {
	var sum float64
	for _, l := range n.layers {
		sum += l.Penalty()
	}
	return sum
}

// StateDict exports parameters keyed "<layer>.<param>".
func (n *GraphNet) StateDict() map[string]*tensor.Matrix {
	state := make(map[string]*tensor.Matrix)
	for _, l := range n.layers {
		for name, m := range l.StateDict() {
			state[l.Name()+"."+name] = m
		}
	}
	return state
}

// LoadStateDict restores parameters by layer-name prefix.
func (n *GraphNet) LoadStateDict(state map[string]*tensor.Matrix) error {
	for _, l := range n.layers {
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

// Spec returns the architecture document: distinct layer records plus
// the node wiring, with node indices remapped to the serialized order.
func (n *GraphNet) Spec() (*Architecture, error) {
	arch := &Architecture{Kind: "graph"}
	for _, l := range n.layers {
		spec, err := l.Spec()
		if err != nil {
			return nil, err
		}
		arch.Layers = append(arch.Layers, spec)
	}

	remap := make(map[Node]int, len(n.order))
	for i, id := range n.order {
		remap[id] = i
	}
	for _, id := range n.order {
		node := n.nodes[id]
		spec := NodeSpec{}
		switch node.kind {
		case nodeInput:
			spec.Kind = "input"
			spec.Dim = node.dim
		case nodeLayer:
			spec.Kind = "layer"
			spec.Layer = node.layer.Name()
		case nodeAdd:
			spec.Kind = "add"
		}
		for _, in := range node.inputs {
			spec.Inputs = append(spec.Inputs, remap[in])
		}
		arch.Nodes = append(arch.Nodes, spec)
	}
	arch.Output = remap[n.output]
	return arch, nil
}
