package hostcpu

import (
	"slices"

	"github.com/gograft/gograft/dtypes"
	"github.com/gograft/gograft/engine"
	"github.com/gograft/gograft/graphs"
	"github.com/pkg/errors"
)

// instruction is one step of a compiled artifact: apply op to the argument
// registers and store the result in the output register.
type instruction struct {
	op   graphs.OpType
	args []int
	out  int
}

// compiler flattens a graph (inlining submodule calls) into an instruction list
// over registers, propagating specs from the example inputs and validating every
// step. Registers 0..numInputs-1 are the artifact inputs.
type compiler struct {
	specs     []engine.TensorSpec       // per register
	constants map[int]*engine.Buffer    // registers preloaded with constant values
	owned     []bool                    // registers written by instructions
	instrs    []instruction
}

func compile(g *graphs.Graph, exampleInputs []engine.TensorSpec) (*Artifact, error) {
	c := &compiler{constants: make(map[int]*engine.Buffer)}
	argRegs := make([]int, len(exampleInputs))
	for ii, spec := range exampleInputs {
		if !supportedDType(spec.DType) {
			return nil, errors.Errorf("graph %q input #%d: dtype %s is not supported by engine %q",
				g.Name(), ii, spec.DType, Name)
		}
		argRegs[ii] = c.newRegister(spec, false)
	}
	outRegs, err := c.compileGraph(g, argRegs)
	if err != nil {
		return nil, err
	}
	outputSpecs := make([]engine.TensorSpec, len(outRegs))
	for ii, reg := range outRegs {
		outputSpecs[ii] = c.specs[reg].Clone()
	}
	return &Artifact{
		name:        g.Name(),
		inputSpecs:  slices.Clone(exampleInputs),
		outputSpecs: outputSpecs,
		numInputs:   len(exampleInputs),
		specs:       c.specs,
		constants:   c.constants,
		owned:       c.owned,
		instrs:      c.instrs,
		outRegs:     outRegs,
	}, nil
}

func (c *compiler) newRegister(spec engine.TensorSpec, owned bool) int {
	c.specs = append(c.specs, spec)
	c.owned = append(c.owned, owned)
	return len(c.specs) - 1
}

// compileGraph compiles one graph with its inputs bound to argRegs, returning the
// registers holding its outputs. Submodule calls recurse, inlining the callee.
func (c *compiler) compileGraph(g *graphs.Graph, argRegs []int) ([]int, error) {
	if g.NumOutputs() == 0 {
		return nil, errors.Errorf("graph %q has no outputs, it cannot be compiled", g.Name())
	}
	// nodeRegs[node.id] holds one register per value the node carries.
	nodeRegs := make([][]int, len(g.Nodes()))
	for _, node := range g.Nodes() {
		regs, err := c.compileNode(g, node, nodeRegs, argRegs)
		if err != nil {
			return nil, errors.WithMessagef(err, "graph %q, node %q", g.Name(), node.Name())
		}
		nodeRegs[node.ID()] = regs
	}
	outRegs := make([]int, g.NumOutputs())
	for ii, output := range g.Outputs() {
		outRegs[ii] = nodeRegs[output.ID()][0]
	}
	return outRegs, nil
}

func (c *compiler) compileNode(g *graphs.Graph, node *graphs.Node, nodeRegs [][]int, argRegs []int) ([]int, error) {
	operandRegs := func() []int {
		regs := make([]int, len(node.Inputs()))
		for ii, input := range node.Inputs() {
			regs[ii] = nodeRegs[input.ID()][0]
		}
		return regs
	}

	switch node.Kind() {
	case graphs.KindInput:
		return []int{argRegs[node.Index()]}, nil

	case graphs.KindConstant:
		value := node.ConstantValue()
		if !supportedDType(value.DType()) {
			return nil, errors.Errorf("constant dtype %s is not supported by engine %q", value.DType(), Name)
		}
		buffer, err := engine.BufferFromFlatAny(value.FlatAny(), value.Shape()...)
		if err != nil {
			return nil, err
		}
		reg := c.newRegister(buffer.Spec(), false)
		c.constants[reg] = buffer
		return []int{reg}, nil

	case graphs.KindOperator:
		args := operandRegs()
		argSpecs := make([]engine.TensorSpec, len(args))
		for ii, reg := range args {
			argSpecs[ii] = c.specs[reg]
		}
		spec, err := inferOpSpec(node.Op(), argSpecs)
		if err != nil {
			return nil, err
		}
		out := c.newRegister(spec, true)
		c.instrs = append(c.instrs, instruction{op: node.Op(), args: args, out: out})
		return []int{out}, nil

	case graphs.KindCallModule:
		sub, ok := g.Submodule(node.Target()).(*graphs.Graph)
		if !ok {
			return nil, errors.Errorf("submodule %q is a %T, engine %q can only inline *graphs.Graph submodules",
				node.Target(), g.Submodule(node.Target()), Name)
		}
		return c.compileGraph(sub, operandRegs())

	case graphs.KindGetItem:
		sourceRegs := nodeRegs[node.Inputs()[0].ID()]
		if node.Index() >= len(sourceRegs) {
			return nil, errors.Errorf("GetItem index %d out of range, source carries %d values",
				node.Index(), len(sourceRegs))
		}
		return []int{sourceRegs[node.Index()]}, nil
	}
	return nil, errors.Errorf("cannot compile %s node", node.Kind())
}

func supportedDType(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Float32, dtypes.Float64, dtypes.Int32, dtypes.Int64:
		return true
	}
	return false
}

// inferOpSpec propagates dtype and dimensions through one op, rejecting what the
// kernels cannot run. The rules match the graphs interpreter.
func inferOpSpec(op graphs.OpType, args []engine.TensorSpec) (engine.TensorSpec, error) {
	var zero engine.TensorSpec
	switch op {
	case graphs.OpAdd, graphs.OpSub, graphs.OpMul:
		lhs, rhs := args[0], args[1]
		if lhs.DType != rhs.DType {
			return zero, errors.Errorf("op %s requires operands of the same dtype, got %s and %s",
				op, lhs.DType, rhs.DType)
		}
		if !lhs.IsScalar() && !rhs.IsScalar() && !slices.Equal(lhs.Dimensions, rhs.Dimensions) {
			return zero, errors.Errorf("op %s requires operands of the same shape (or a scalar), got %v and %v",
				op, lhs.Dimensions, rhs.Dimensions)
		}
		if lhs.IsScalar() && !rhs.IsScalar() {
			return rhs.Clone(), nil
		}
		return lhs.Clone(), nil

	case graphs.OpMatMul:
		lhs, rhs := args[0], args[1]
		if lhs.DType != rhs.DType {
			return zero, errors.Errorf("op %s requires operands of the same dtype, got %s and %s",
				op, lhs.DType, rhs.DType)
		}
		if lhs.Rank() != 2 || rhs.Rank() != 2 {
			return zero, errors.Errorf("op %s requires rank-2 operands, got ranks %d and %d",
				op, lhs.Rank(), rhs.Rank())
		}
		if lhs.Dimensions[1] != rhs.Dimensions[0] {
			return zero, errors.Errorf("op %s: contracting dimensions don't match, %v x %v",
				op, lhs.Dimensions, rhs.Dimensions)
		}
		return engine.MakeTensorSpecOrError(lhs.DType, lhs.Dimensions[0], rhs.Dimensions[1])

	case graphs.OpRelu:
		return args[0].Clone(), nil

	case graphs.OpSigmoid, graphs.OpRsqrt:
		if !args[0].DType.IsFloat() {
			return zero, errors.Errorf("op %s requires a float operand, got dtype %s", op, args[0].DType)
		}
		return args[0].Clone(), nil
	}
	return zero, errors.Errorf("op %s is not supported by engine %q", op, Name)
}
