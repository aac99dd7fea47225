package graphs

import (
	"math"
	"slices"

	"github.com/chewxy/math32"
	"github.com/gograft/gograft/dtypes"
	"github.com/gograft/gograft/tensors"
	"github.com/pkg/errors"
)

// Call executes the graph by interpreting its nodes one by one over the given
// tensors. It implements Module.
//
// This is the uncompiled execution path: slow but always available, it is what a
// graph falls back to when no engine artifact can serve it. Dtype and shape errors
// surface here, since graphs carry neither.
//
// The interpreter supports Float32, Float64, Int32 and Int64 tensors; other dtypes
// return an error.
func (g *Graph) Call(args ...*tensors.Tensor) ([]*tensors.Tensor, error) {
	if len(g.outputs) == 0 {
		return nil, errors.Errorf("graph %q has no outputs, call Return before executing it", g.name)
	}
	if len(args) != len(g.inputs) {
		return nil, errors.Errorf("graph %q takes %d arguments, got %d", g.name, len(g.inputs), len(args))
	}
	for ii, arg := range args {
		if arg == nil {
			return nil, errors.Errorf("graph %q: argument #%d is nil", g.name, ii)
		}
	}

	// values[node.id] is a *tensors.Tensor, except for CallModule nodes where it
	// is the []*tensors.Tensor the submodule returned.
	values := make([]any, len(g.nodes))
	for _, node := range g.nodes {
		if err := g.evalNode(node, values, args); err != nil {
			return nil, err
		}
	}

	results := make([]*tensors.Tensor, len(g.outputs))
	for ii, output := range g.outputs {
		results[ii] = values[output.id].(*tensors.Tensor)
	}
	return results, nil
}

func (g *Graph) evalNode(node *Node, values []any, args []*tensors.Tensor) error {
	switch node.kind {
	case KindInput:
		values[node.id] = args[node.index]

	case KindConstant:
		values[node.id] = node.constant

	case KindOperator:
		operands := make([]*tensors.Tensor, len(node.inputs))
		for ii, input := range node.inputs {
			operands[ii] = values[input.id].(*tensors.Tensor)
		}
		result, err := evalOp(node.op, operands)
		if err != nil {
			return errors.WithMessagef(err, "graph %q, node %q", g.name, node.name)
		}
		values[node.id] = result

	case KindCallModule:
		module := g.submodules[node.target]
		if module == nil {
			return errors.Errorf("graph %q: node %q calls unregistered submodule %q",
				g.name, node.name, node.target)
		}
		operands := make([]*tensors.Tensor, len(node.inputs))
		for ii, input := range node.inputs {
			operands[ii] = values[input.id].(*tensors.Tensor)
		}
		results, err := module.Call(operands...)
		if err != nil {
			return errors.WithMessagef(err, "graph %q: submodule %q", g.name, node.target)
		}
		if len(results) != node.numOutputs {
			return errors.Errorf("graph %q: submodule %q returned %d values, expected %d",
				g.name, node.target, len(results), node.numOutputs)
		}
		values[node.id] = results

	case KindGetItem:
		source := values[node.inputs[0].id].([]*tensors.Tensor)
		values[node.id] = source[node.index]

	default:
		return errors.Errorf("graph %q: cannot evaluate %s node %q", g.name, node.kind, node.name)
	}
	return nil
}

// evalOp evaluates one operator over concrete tensors.
func evalOp(op OpType, operands []*tensors.Tensor) (*tensors.Tensor, error) {
	switch op {
	case OpAdd, OpSub, OpMul:
		return binaryOp(op, operands[0], operands[1])
	case OpMatMul:
		return matMul(operands[0], operands[1])
	case OpRelu, OpSigmoid, OpRsqrt:
		return unaryOp(op, operands[0])
	}
	return nil, errors.Errorf("cannot evaluate op %s", op)
}

// number are the Go types the interpreter computes with.
type number interface {
	int32 | int64 | float32 | float64
}

func binaryOp(op OpType, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	if lhs.DType() != rhs.DType() {
		return nil, errors.Errorf("op %s requires operands of the same dtype, got %s and %s",
			op, lhs.DType(), rhs.DType())
	}
	if !lhs.IsScalar() && !rhs.IsScalar() && !slices.Equal(lhs.Shape(), rhs.Shape()) {
		return nil, errors.Errorf("op %s requires operands of the same shape (or a scalar), got %v and %v",
			op, lhs.Shape(), rhs.Shape())
	}
	switch lhs.DType() {
	case dtypes.Float32:
		return binaryOpFlat[float32](op, lhs, rhs)
	case dtypes.Float64:
		return binaryOpFlat[float64](op, lhs, rhs)
	case dtypes.Int32:
		return binaryOpFlat[int32](op, lhs, rhs)
	case dtypes.Int64:
		return binaryOpFlat[int64](op, lhs, rhs)
	}
	return nil, errors.Errorf("op %s: dtype %s is not supported by the graph interpreter", op, lhs.DType())
}

func binaryOpFlat[T number](op OpType, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	var fn func(a, b T) T
	switch op {
	case OpAdd:
		fn = func(a, b T) T { return a + b }
	case OpSub:
		fn = func(a, b T) T { return a - b }
	case OpMul:
		fn = func(a, b T) T { return a * b }
	default:
		return nil, errors.Errorf("op %s is not a binary element-wise op", op)
	}
	lhsFlat, rhsFlat := tensors.Flat[T](lhs), tensors.Flat[T](rhs)
	shape := lhs.Shape()
	if lhs.IsScalar() && !rhs.IsScalar() {
		shape = rhs.Shape()
	}
	out := make([]T, max(len(lhsFlat), len(rhsFlat)))
	lhsStride, rhsStride := 1, 1
	if lhs.IsScalar() {
		lhsStride = 0
	}
	if rhs.IsScalar() {
		rhsStride = 0
	}
	for ii := range out {
		out[ii] = fn(lhsFlat[ii*lhsStride], rhsFlat[ii*rhsStride])
	}
	return tensors.FromFlatAndDimensions(out, shape...), nil
}

func unaryOp(op OpType, operand *tensors.Tensor) (*tensors.Tensor, error) {
	switch operand.DType() {
	case dtypes.Float32:
		var fn func(x float32) float32
		switch op {
		case OpRelu:
			fn = func(x float32) float32 { return max(x, 0) }
		case OpSigmoid:
			fn = func(x float32) float32 { return 1 / (1 + math32.Exp(-x)) }
		case OpRsqrt:
			fn = func(x float32) float32 { return 1 / math32.Sqrt(x) }
		}
		return mapFlat(operand, fn), nil
	case dtypes.Float64:
		var fn func(x float64) float64
		switch op {
		case OpRelu:
			fn = func(x float64) float64 { return max(x, 0) }
		case OpSigmoid:
			fn = func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
		case OpRsqrt:
			fn = func(x float64) float64 { return 1 / math.Sqrt(x) }
		}
		return mapFlat(operand, fn), nil
	case dtypes.Int32:
		if op == OpRelu {
			return mapFlat(operand, func(x int32) int32 { return max(x, 0) }), nil
		}
	case dtypes.Int64:
		if op == OpRelu {
			return mapFlat(operand, func(x int64) int64 { return max(x, 0) }), nil
		}
	default:
		return nil, errors.Errorf("op %s: dtype %s is not supported by the graph interpreter",
			op, operand.DType())
	}
	return nil, errors.Errorf("op %s requires a float operand, got dtype %s", op, operand.DType())
}

func mapFlat[T number](operand *tensors.Tensor, fn func(x T) T) *tensors.Tensor {
	flat := tensors.Flat[T](operand)
	out := make([]T, len(flat))
	for ii, x := range flat {
		out[ii] = fn(x)
	}
	return tensors.FromFlatAndDimensions(out, operand.Shape()...)
}

func matMul(lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	if lhs.DType() != rhs.DType() {
		return nil, errors.Errorf("op %s requires operands of the same dtype, got %s and %s",
			OpMatMul, lhs.DType(), rhs.DType())
	}
	if lhs.Rank() != 2 || rhs.Rank() != 2 {
		return nil, errors.Errorf("op %s requires rank-2 operands, got ranks %d and %d",
			OpMatMul, lhs.Rank(), rhs.Rank())
	}
	if lhs.Shape()[1] != rhs.Shape()[0] {
		return nil, errors.Errorf("op %s: contracting dimensions don't match, %v x %v",
			OpMatMul, lhs.Shape(), rhs.Shape())
	}
	switch lhs.DType() {
	case dtypes.Float32:
		return matMulFlat[float32](lhs, rhs), nil
	case dtypes.Float64:
		return matMulFlat[float64](lhs, rhs), nil
	case dtypes.Int32:
		return matMulFlat[int32](lhs, rhs), nil
	case dtypes.Int64:
		return matMulFlat[int64](lhs, rhs), nil
	}
	return nil, errors.Errorf("op %s: dtype %s is not supported by the graph interpreter",
		OpMatMul, lhs.DType())
}

func matMulFlat[T number](lhs, rhs *tensors.Tensor) *tensors.Tensor {
	m, k := lhs.Shape()[0], lhs.Shape()[1]
	n := rhs.Shape()[1]
	lhsFlat, rhsFlat := tensors.Flat[T](lhs), tensors.Flat[T](rhs)
	out := make([]T, m*n)
	for row := range m {
		for contract := range k {
			a := lhsFlat[row*k+contract]
			if a == 0 {
				continue
			}
			for col := range n {
				out[row*n+col] += a * rhsFlat[contract*n+col]
			}
		}
	}
	return tensors.FromFlatAndDimensions(out, m, n)
}
