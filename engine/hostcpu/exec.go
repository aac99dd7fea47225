package hostcpu

import (
	"math"
	"slices"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/gograft/gograft/dtypes"
	"github.com/gograft/gograft/engine"
	"github.com/gograft/gograft/graphs"
	"github.com/pkg/errors"
)

// Artifact is a compiled instruction list over value registers. It implements
// engine.Artifact.
//
// Artifacts are specialized: Execute requires inputs with exactly the dtypes and
// dimensions of the example inputs given at compile time.
type Artifact struct {
	name                    string
	inputSpecs, outputSpecs []engine.TensorSpec

	numInputs int
	specs     []engine.TensorSpec
	constants map[int]*engine.Buffer
	owned     []bool
	instrs    []instruction
	outRegs   []int

	destroyed atomic.Bool
}

// Name implements engine.Artifact.
func (a *Artifact) Name() string { return a.name }

// InputSpecs implements engine.Artifact.
func (a *Artifact) InputSpecs() []engine.TensorSpec { return slices.Clone(a.inputSpecs) }

// OutputSpecs implements engine.Artifact.
func (a *Artifact) OutputSpecs() []engine.TensorSpec { return slices.Clone(a.outputSpecs) }

// Destroy implements engine.Artifact.
func (a *Artifact) Destroy() error {
	a.destroyed.Store(true)
	return nil
}

// Execute implements engine.Artifact. It is safe for concurrent calls: registers
// are per-execution, the artifact itself is read-only.
func (a *Artifact) Execute(inputs []*engine.Buffer) ([]*engine.Buffer, error) {
	if a.destroyed.Load() {
		return nil, errors.Errorf("artifact %q was destroyed", a.name)
	}
	if len(inputs) != a.numInputs {
		return nil, errors.Errorf("artifact %q takes %d inputs, got %d", a.name, a.numInputs, len(inputs))
	}
	regs := make([]*engine.Buffer, len(a.specs))
	for ii, input := range inputs {
		if input == nil {
			return nil, errors.Errorf("artifact %q: input #%d is nil", a.name, ii)
		}
		if !input.Spec().Equal(a.inputSpecs[ii]) {
			return nil, errors.Errorf("artifact %q was compiled for input #%d with spec %s, got %s",
				a.name, ii, a.inputSpecs[ii], input.Spec())
		}
		regs[ii] = input
	}
	for reg, buffer := range a.constants {
		regs[reg] = buffer
	}
	for _, instr := range a.instrs {
		args := make([]*engine.Buffer, len(instr.args))
		for ii, reg := range instr.args {
			args[ii] = regs[reg]
		}
		out := engine.NewBuffer(a.specs[instr.out].DType, a.specs[instr.out].Dimensions...)
		if err := execOp(instr.op, args, out); err != nil {
			return nil, errors.WithMessagef(err, "artifact %q", a.name)
		}
		regs[instr.out] = out
	}
	results := make([]*engine.Buffer, len(a.outRegs))
	for ii, reg := range a.outRegs {
		if a.owned[reg] {
			results[ii] = regs[reg]
		} else {
			// The output aliases an input or a constant, don't hand out shared storage.
			results[ii] = regs[reg].Clone()
		}
	}
	return results, nil
}

// execOp runs one instruction. Dtypes and shapes were validated at compile time,
// the kernels assume consistency.
func execOp(op graphs.OpType, args []*engine.Buffer, out *engine.Buffer) error {
	switch out.DType() {
	case dtypes.Float32:
		return execOpFlat[float32](op, args, out)
	case dtypes.Float64:
		return execOpFlat[float64](op, args, out)
	case dtypes.Int32:
		return execOpFlat[int32](op, args, out)
	case dtypes.Int64:
		return execOpFlat[int64](op, args, out)
	}
	return errors.Errorf("op %s: no kernel for dtype %s", op, out.DType())
}

type number interface {
	int32 | int64 | float32 | float64
}

func execOpFlat[T number](op graphs.OpType, args []*engine.Buffer, out *engine.Buffer) error {
	outFlat, err := engine.BufferFlat[T](out)
	if err != nil {
		return err
	}
	argsFlat := make([][]T, len(args))
	for ii, arg := range args {
		if argsFlat[ii], err = engine.BufferFlat[T](arg); err != nil {
			return err
		}
	}

	switch op {
	case graphs.OpAdd:
		binaryKernel(argsFlat[0], argsFlat[1], outFlat, func(a, b T) T { return a + b })
	case graphs.OpSub:
		binaryKernel(argsFlat[0], argsFlat[1], outFlat, func(a, b T) T { return a - b })
	case graphs.OpMul:
		binaryKernel(argsFlat[0], argsFlat[1], outFlat, func(a, b T) T { return a * b })
	case graphs.OpMatMul:
		m := args[0].Dimensions()[0]
		k := args[0].Dimensions()[1]
		n := args[1].Dimensions()[1]
		matMulKernel(argsFlat[0], argsFlat[1], outFlat, m, k, n)
	case graphs.OpRelu:
		for ii, x := range argsFlat[0] {
			outFlat[ii] = max(x, 0)
		}
	case graphs.OpSigmoid, graphs.OpRsqrt:
		return unaryFloatKernel(op, args[0], out)
	default:
		return errors.Errorf("op %s: no kernel", op)
	}
	return nil
}

// binaryKernel computes out[i] = fn(lhs[i], rhs[i]), broadcasting a length-1
// (scalar) side over the other.
func binaryKernel[T number](lhs, rhs, out []T, fn func(a, b T) T) {
	lhsStride, rhsStride := 1, 1
	if len(lhs) == 1 && len(out) > 1 {
		lhsStride = 0
	}
	if len(rhs) == 1 && len(out) > 1 {
		rhsStride = 0
	}
	for ii := range out {
		out[ii] = fn(lhs[ii*lhsStride], rhs[ii*rhsStride])
	}
}

func matMulKernel[T number](lhs, rhs, out []T, m, k, n int) {
	for row := range m {
		for contract := range k {
			a := lhs[row*k+contract]
			if a == 0 {
				continue
			}
			for col := range n {
				out[row*n+col] += a * rhs[contract*n+col]
			}
		}
	}
}

func unaryFloatKernel(op graphs.OpType, arg, out *engine.Buffer) error {
	switch out.DType() {
	case dtypes.Float32:
		argFlat, _ := engine.BufferFlat[float32](arg)
		outFlat, _ := engine.BufferFlat[float32](out)
		switch op {
		case graphs.OpSigmoid:
			for ii, x := range argFlat {
				outFlat[ii] = 1 / (1 + math32.Exp(-x))
			}
		case graphs.OpRsqrt:
			for ii, x := range argFlat {
				outFlat[ii] = 1 / math32.Sqrt(x)
			}
		}
		return nil
	case dtypes.Float64:
		argFlat, _ := engine.BufferFlat[float64](arg)
		outFlat, _ := engine.BufferFlat[float64](out)
		switch op {
		case graphs.OpSigmoid:
			for ii, x := range argFlat {
				outFlat[ii] = 1 / (1 + math.Exp(-x))
			}
		case graphs.OpRsqrt:
			for ii, x := range argFlat {
				outFlat[ii] = 1 / math.Sqrt(x)
			}
		}
		return nil
	}
	return errors.Errorf("op %s: no kernel for dtype %s", op, out.DType())
}
