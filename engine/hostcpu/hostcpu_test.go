package hostcpu

import (
	"testing"

	"github.com/gograft/gograft/dtypes"
	"github.com/gograft/gograft/engine"
	"github.com/gograft/gograft/graphs"
	"github.com/gograft/gograft/tensors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) engine.Engine {
	e, err := New("")
	require.NoError(t, err)
	return e
}

// buildMLP returns relu(x·w + b) over float32, for a (batch, 2) input.
func buildMLP() *graphs.Graph {
	g := graphs.New("mlp")
	x := g.Input("x")
	w := g.Constant(tensors.FromFlatAndDimensions([]float32{1, 2, 3, 4}, 2, 2))
	b := g.Constant(tensors.FromScalar(float32(-10)))
	g.Return(g.Apply(graphs.OpRelu, g.Apply(graphs.OpAdd, g.Apply(graphs.OpMatMul, x, w), b)))
	return g
}

func TestRegistered(t *testing.T) {
	e := must.M1(engine.NewWithConfig("hostcpu"))
	require.Equal(t, Name, e.Name())
	_, err := engine.NewWithConfig("hostcpu:threads=4")
	require.ErrorContains(t, err, "takes no configuration")
}

func TestCompileAndExecute(t *testing.T) {
	e := newEngine(t)
	g := buildMLP()

	spec := engine.MakeTensorSpec(dtypes.Float32, 2, 2)
	artifact, err := e.Compile(g, []engine.TensorSpec{spec}, nil)
	require.NoError(t, err)
	require.Equal(t, "mlp", artifact.Name())
	require.Equal(t, []engine.TensorSpec{spec}, artifact.InputSpecs())
	require.Len(t, artifact.OutputSpecs(), 1)
	require.Equal(t, []int{2, 2}, artifact.OutputSpecs()[0].Dimensions)

	input := must.M1(engine.BufferFromFlat([]float32{1, 1, 2, 2}, 2, 2))
	outputs, err := artifact.Execute([]*engine.Buffer{input})
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	// Cross-check against interpreted execution of the same graph.
	want := must.M1(g.Call(tensors.FromFlatAndDimensions([]float32{1, 1, 2, 2}, 2, 2)))
	require.Equal(t,
		tensors.Flat[float32](want[0]),
		must.M1(engine.BufferFlat[float32](outputs[0])))
}

func TestCompileInlinesSubmodules(t *testing.T) {
	inner := graphs.New("fused_0")
	x := inner.Input("x")
	inner.Return(inner.Apply(graphs.OpSigmoid, x), inner.Apply(graphs.OpRsqrt, x))

	outer := graphs.New("outer")
	y := outer.Input("y")
	call := outer.CallModule("fused_0", inner, y)
	outer.Return(outer.Apply(graphs.OpMul, outer.GetItem(call, 0), outer.GetItem(call, 1)))

	e := newEngine(t)
	spec := engine.MakeTensorSpec(dtypes.Float32, 4)
	artifact := must.M1(e.Compile(outer, []engine.TensorSpec{spec}, nil))

	flat := []float32{1, 4, 9, 16}
	input := must.M1(engine.BufferFromFlat(flat, 4))
	outputs := must.M1(artifact.Execute([]*engine.Buffer{input}))

	want := must.M1(outer.Call(tensors.FromFlatAndDimensions(flat, 4)))
	got := must.M1(engine.BufferFlat[float32](outputs[0]))
	require.InDeltaSlice(t, tensors.Flat[float32](want[0]), got, 1e-5)
}

func TestCompileErrors(t *testing.T) {
	e := newEngine(t)
	g := buildMLP()

	// Wrong number of example inputs.
	_, err := e.Compile(g, nil, nil)
	require.ErrorContains(t, err, "takes 1 inputs, got 0")

	// Shape mismatch caught at compile time.
	spec33 := engine.MakeTensorSpec(dtypes.Float32, 3, 3)
	_, err = e.Compile(g, []engine.TensorSpec{spec33}, nil)
	require.ErrorContains(t, err, "contracting dimensions")

	// Sigmoid over ints is rejected.
	intG := graphs.New("int_sigmoid")
	intG.Return(intG.Apply(graphs.OpSigmoid, intG.Input("x")))
	specInt := engine.MakeTensorSpec(dtypes.Int64, 1)
	_, err = e.Compile(intG, []engine.TensorSpec{specInt}, nil)
	require.ErrorContains(t, err, "requires a float operand")

	// Unsupported input dtype.
	_, err = e.Compile(intG, []engine.TensorSpec{engine.MakeTensorSpec(dtypes.Float16, 1)}, nil)
	require.ErrorContains(t, err, "not supported")

	// Non-graph submodules cannot be inlined.
	outer := graphs.New("outer")
	inner := graphs.New("inner")
	inner.Return(inner.Input("x"))
	call := outer.CallModule("opaque", inner, outer.Input("y"))
	outer.Return(outer.GetItem(call, 0))
	require.NoError(t, outer.ReplaceSubmodule("opaque", opaqueModule{}))
	_, err = e.Compile(outer, []engine.TensorSpec{engine.MakeTensorSpec(dtypes.Float32, 1)}, nil)
	require.ErrorContains(t, err, "can only inline")

	// Finalized engines refuse to compile.
	e.Finalize()
	_, err = e.Compile(g, []engine.TensorSpec{spec33}, nil)
	require.ErrorContains(t, err, "finalized")
}

type opaqueModule struct{}

func (opaqueModule) Call(args ...*tensors.Tensor) ([]*tensors.Tensor, error) { return args, nil }

func TestExecuteErrors(t *testing.T) {
	e := newEngine(t)
	g := buildMLP()
	spec := engine.MakeTensorSpec(dtypes.Float32, 2, 2)
	artifact := must.M1(e.Compile(g, []engine.TensorSpec{spec}, nil))

	// Artifacts are specialized: a (3, 2) input doesn't match the compiled (2, 2) spec.
	input32 := must.M1(engine.BufferFromFlat([]float32{1, 2, 3, 4, 5, 6}, 3, 2))
	_, err := artifact.Execute([]*engine.Buffer{input32})
	require.ErrorContains(t, err, "was compiled for input #0")

	_, err = artifact.Execute(nil)
	require.ErrorContains(t, err, "takes 1 inputs")

	require.NoError(t, artifact.Destroy())
	input22 := must.M1(engine.BufferFromFlat([]float32{1, 2, 3, 4}, 2, 2))
	_, err = artifact.Execute([]*engine.Buffer{input22})
	require.ErrorContains(t, err, "destroyed")
}

func TestIdentityOutputDoesNotAliasInput(t *testing.T) {
	g := graphs.New("identity")
	g.Return(g.Input("x"))
	e := newEngine(t)
	artifact := must.M1(e.Compile(g, []engine.TensorSpec{engine.MakeTensorSpec(dtypes.Float32, 2)}, nil))

	input := must.M1(engine.BufferFromFlat([]float32{1, 2}, 2))
	outputs := must.M1(artifact.Execute([]*engine.Buffer{input}))
	inputFlat := must.M1(engine.BufferFlat[float32](input))
	inputFlat[0] = 99
	require.Equal(t, []float32{1, 2}, must.M1(engine.BufferFlat[float32](outputs[0])))
}
