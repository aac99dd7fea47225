// Package graphs holds the calling framework's computation graph: an ordered list
// of nodes (inputs, constants, operators, calls into named submodules) built with a
// small builder API, plus an interpreted execution path (see Graph.Call).
//
// Graphs are shape-polymorphic: a node declares what it computes, not the dtype or
// dimensions of its value. Those are only fixed when the graph is called with
// concrete tensors, or when an engine compiles it against example inputs. The same
// graph can therefore be executed with arguments of different shapes.
//
// A Graph implements Module, so graphs nest: a CallModule node invokes a named
// submodule, which can itself be a *Graph or any other Module implementation.
// Submodules can be substituted in place (ReplaceSubmodule) without rebuilding the
// enclosing graph, which is how compiled or instrumented replacements are spliced in.
//
// The builder methods (Input, Constant, Apply, CallModule, GetItem, Return) panic
// with a stack trace on structural misuse. Errors that depend on the values flowing
// through the graph (dtype or shape mismatches) surface at Call time instead.
package graphs

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gograft/gograft/tensors"
	"github.com/pkg/errors"
)

// Module is anything the graph can call: it takes tensors and returns tensors.
// *Graph implements it (interpreted execution), and so do the compiled-partition
// wrappers the bridge substitutes in.
type Module interface {
	Call(args ...*tensors.Tensor) ([]*tensors.Tensor, error)
}

// NodeKind discriminates the node types of a Graph.
type NodeKind int

const (
	KindInvalid NodeKind = iota
	KindInput
	KindConstant
	KindOperator
	KindCallModule
	KindGetItem
)

// String implements fmt.Stringer.
func (k NodeKind) String() string {
	switch k {
	case KindInput:
		return "Input"
	case KindConstant:
		return "Constant"
	case KindOperator:
		return "Operator"
	case KindCallModule:
		return "CallModule"
	case KindGetItem:
		return "GetItem"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// graphCount is incremented for each Graph created. Ids are unique within the
// process and never reused.
var graphCount atomic.Uint64

// Graph is a computation graph under construction or ready for execution.
//
// Nodes are stored in creation order, which is also a valid evaluation order: a
// node's operands always precede it. A Graph is not safe for concurrent mutation;
// once Return was called it is safe for concurrent Call, as long as submodules are
// not being replaced concurrently.
type Graph struct {
	id      uint64
	name    string
	nodes   []*Node
	inputs  []*Node
	outputs []*Node

	submodules map[string]Module
}

// Node is one element of a Graph. Create them with the Graph builder methods.
type Node struct {
	graph *Graph
	id    int
	kind  NodeKind
	name  string

	// Kind-specific fields:
	op         OpType          // KindOperator
	target     string          // KindCallModule: submodule name
	index      int             // KindInput: argument position; KindGetItem: item position
	numOutputs int             // KindCallModule: number of values the submodule returns
	constant   *tensors.Tensor // KindConstant

	inputs []*Node
}

// New creates an empty Graph with a process-unique id.
func New(name string) *Graph {
	return &Graph{
		id:         graphCount.Add(1),
		name:       name,
		submodules: make(map[string]Module),
	}
}

// ID returns the process-unique id of the graph.
func (g *Graph) ID() uint64 { return g.id }

// Name returns the name given to New. It implements part of engine.Program.
func (g *Graph) Name() string { return g.name }

// NumInputs returns the number of declared inputs. It implements part of
// engine.Program.
func (g *Graph) NumInputs() int { return len(g.inputs) }

// NumOutputs returns the number of values the graph returns. It implements part of
// engine.Program. It is 0 until Return is called.
func (g *Graph) NumOutputs() int { return len(g.outputs) }

// Nodes returns the nodes in creation order. The returned slice is owned by the
// graph, don't modify it.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Inputs returns the input nodes in argument order. The returned slice is owned by
// the graph, don't modify it.
func (g *Graph) Inputs() []*Node { return g.inputs }

// Outputs returns the output nodes set by Return. The returned slice is owned by
// the graph, don't modify it.
func (g *Graph) Outputs() []*Node { return g.outputs }

func (g *Graph) newNode(kind NodeKind, name string, inputs ...*Node) *Node {
	for _, input := range inputs {
		if input == nil {
			exceptions.Panicf("graphs: nil operand creating %s node in graph %q", kind, g.name)
		}
		if input.graph != g {
			exceptions.Panicf("graphs: operand %q belongs to graph %q, cannot use it in graph %q",
				input.name, input.graph.name, g.name)
		}
	}
	node := &Node{
		graph:  g,
		id:     len(g.nodes),
		kind:   kind,
		name:   name,
		inputs: inputs,
	}
	g.nodes = append(g.nodes, node)
	return node
}

// Input declares the next graph argument and returns its node. Arguments are
// positional, in declaration order. If name is empty a default ("input_<position>")
// is used.
func (g *Graph) Input(name string) *Node {
	position := len(g.inputs)
	if name == "" {
		name = fmt.Sprintf("input_%d", position)
	}
	node := g.newNode(KindInput, name)
	node.index = position
	g.inputs = append(g.inputs, node)
	return node
}

// Constant embeds a fixed tensor value in the graph.
func (g *Graph) Constant(value *tensors.Tensor) *Node {
	if value == nil {
		exceptions.Panicf("graphs: Constant(nil) in graph %q", g.name)
	}
	node := g.newNode(KindConstant, fmt.Sprintf("const_%d", len(g.nodes)))
	node.constant = value
	return node
}

// Apply creates an operator node. It panics if op is invalid or the number of
// operands doesn't match op.NumOperands().
func (g *Graph) Apply(op OpType, operands ...*Node) *Node {
	if !op.IsAOpType() || op == OpInvalid {
		exceptions.Panicf("graphs: invalid op %s in graph %q", op, g.name)
	}
	if len(operands) != op.NumOperands() {
		exceptions.Panicf("graphs: op %s takes %d operands, got %d (graph %q)",
			op, op.NumOperands(), len(operands), g.name)
	}
	name := fmt.Sprintf("%s_%d", strings.ToLower(strings.TrimPrefix(op.String(), "Op")), len(g.nodes))
	node := g.newNode(KindOperator, name, operands...)
	node.op = op
	return node
}

// CallModule registers module under the given name and creates a node that calls it
// with the given operands. The node carries all the values the module returns; use
// GetItem to select individual ones.
//
// The number of returned values is taken from the module when it is a *Graph, and
// assumed to be 1 otherwise. The name must not be registered yet.
func (g *Graph) CallModule(name string, module Module, operands ...*Node) *Node {
	if module == nil {
		exceptions.Panicf("graphs: CallModule(%q, nil) in graph %q", name, g.name)
	}
	if _, found := g.submodules[name]; found {
		exceptions.Panicf("graphs: submodule %q already registered in graph %q", name, g.name)
	}
	numOutputs := 1
	if sub, ok := module.(*Graph); ok {
		numOutputs = sub.NumOutputs()
		if numOutputs == 0 {
			exceptions.Panicf("graphs: submodule graph %q has no outputs (missing Return?)", sub.name)
		}
	}
	g.submodules[name] = module
	node := g.newNode(KindCallModule, name, operands...)
	node.target = name
	node.numOutputs = numOutputs
	return node
}

// GetItem selects the index-th value returned by a CallModule node.
func (g *Graph) GetItem(source *Node, index int) *Node {
	if source == nil || source.graph != g {
		exceptions.Panicf("graphs: GetItem source must be a node of graph %q", g.name)
	}
	if source.kind != KindCallModule {
		exceptions.Panicf("graphs: GetItem source must be a CallModule node, got %s node %q",
			source.kind, source.name)
	}
	if index < 0 || index >= source.numOutputs {
		exceptions.Panicf("graphs: GetItem index %d out of range, submodule %q returns %d values",
			index, source.target, source.numOutputs)
	}
	node := g.newNode(KindGetItem, fmt.Sprintf("getitem_%d", len(g.nodes)), source)
	node.index = index
	return node
}

// Return sets the graph outputs and finishes construction. It panics if called
// twice, if no outputs are given or if any output is a multi-valued node (use
// GetItem first).
func (g *Graph) Return(outputs ...*Node) {
	if len(g.outputs) > 0 {
		exceptions.Panicf("graphs: Return already called on graph %q", g.name)
	}
	if len(outputs) == 0 {
		exceptions.Panicf("graphs: Return with no outputs on graph %q", g.name)
	}
	for _, output := range outputs {
		if output == nil || output.graph != g {
			exceptions.Panicf("graphs: Return output must be a node of graph %q", g.name)
		}
		if output.kind == KindCallModule {
			exceptions.Panicf("graphs: output %q is multi-valued, select a value with GetItem first",
				output.name)
		}
	}
	g.outputs = slices.Clone(outputs)
}

// Clone returns a graph that shares the nodes of g but has its own submodule
// registry and its own id: submodules can be replaced on the clone without
// affecting g. The clone is for execution and submodule substitution only, don't
// use the builder methods on it.
func (g *Graph) Clone() *Graph {
	return &Graph{
		id:         graphCount.Add(1),
		name:       g.name,
		nodes:      g.nodes,
		inputs:     g.inputs,
		outputs:    g.outputs,
		submodules: maps.Clone(g.submodules),
	}
}

// Submodule returns the module registered under name, or nil if there is none.
func (g *Graph) Submodule(name string) Module {
	return g.submodules[name]
}

// SubmoduleNames returns the names of the registered submodules, sorted.
func (g *Graph) SubmoduleNames() []string {
	names := make([]string, 0, len(g.submodules))
	for name := range g.submodules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ReplaceSubmodule substitutes the module registered under name, in place. Call
// nodes referring to the name are untouched and will invoke the new module. The new
// module must return the same number of values as the one it replaces.
func (g *Graph) ReplaceSubmodule(name string, module Module) error {
	if module == nil {
		return errors.Errorf("ReplaceSubmodule(%q, nil) on graph %q", name, g.name)
	}
	if _, found := g.submodules[name]; !found {
		return errors.Errorf("graph %q has no submodule %q to replace, known submodules: %v",
			g.name, name, g.SubmoduleNames())
	}
	g.submodules[name] = module
	return nil
}

// ID returns the position of the node in Graph.Nodes().
func (n *Node) ID() int { return n.id }

// Kind returns the kind of the node.
func (n *Node) Kind() NodeKind { return n.kind }

// Name returns the node name. Names are unique within a graph but carry no
// semantics, except that CallModule nodes are named after their target submodule.
func (n *Node) Name() string { return n.name }

// Op returns the operation of a KindOperator node, OpInvalid for other kinds.
func (n *Node) Op() OpType { return n.op }

// Target returns the submodule name of a KindCallModule node, "" for other kinds.
func (n *Node) Target() string { return n.target }

// Index returns the argument position of a KindInput node, or the item position of
// a KindGetItem node.
func (n *Node) Index() int { return n.index }

// NumOutputs returns the number of values the node carries: 1, except for
// KindCallModule nodes, which carry one value per submodule output.
func (n *Node) NumOutputs() int {
	if n.kind == KindCallModule {
		return n.numOutputs
	}
	return 1
}

// Inputs returns the operand nodes. The returned slice is owned by the node, don't
// modify it.
func (n *Node) Inputs() []*Node { return n.inputs }

// ConstantValue returns the tensor of a KindConstant node, nil for other kinds.
func (n *Node) ConstantValue() *tensors.Tensor { return n.constant }

// Graph returns the graph the node belongs to.
func (n *Node) Graph() *Graph { return n.graph }

// String implements fmt.Stringer.
func (n *Node) String() string {
	switch n.kind {
	case KindInput:
		return fmt.Sprintf("#%d %s(arg %d)", n.id, n.name, n.index)
	case KindConstant:
		return fmt.Sprintf("#%d %s = %s", n.id, n.name, n.constant)
	case KindOperator:
		return fmt.Sprintf("#%d %s = %s%v", n.id, n.name, n.op, nodeIds(n.inputs))
	case KindCallModule:
		return fmt.Sprintf("#%d %s = call %q%v", n.id, n.name, n.target, nodeIds(n.inputs))
	case KindGetItem:
		return fmt.Sprintf("#%d %s = #%d[%d]", n.id, n.name, n.inputs[0].id, n.index)
	}
	return fmt.Sprintf("#%d %s(%s)", n.id, n.name, n.kind)
}

func nodeIds(nodes []*Node) []int {
	ids := make([]int, len(nodes))
	for ii, node := range nodes {
		ids[ii] = node.id
	}
	return ids
}

// String implements fmt.Stringer: a multi-line listing of the graph, for debugging.
func (g *Graph) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Graph %q (#%d): %d inputs, %d outputs, %d nodes\n",
		g.name, g.id, len(g.inputs), len(g.outputs), len(g.nodes))
	for _, node := range g.nodes {
		_, _ = fmt.Fprintf(&sb, "\t%s\n", node)
	}
	if len(g.outputs) > 0 {
		_, _ = fmt.Fprintf(&sb, "\treturn %v\n", nodeIds(g.outputs))
	}
	return sb.String()
}
