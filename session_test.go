package gograft

import (
	"sync/atomic"
	"testing"

	"github.com/gograft/gograft/engine"
	_ "github.com/gograft/gograft/engine/hostcpu"
	"github.com/gograft/gograft/graphs"
	"github.com/gograft/gograft/tensors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// countingEngine wraps a real engine and counts (and optionally sabotages)
// compilations.
type countingEngine struct {
	engine.Engine
	compiles     atomic.Int64
	failCompile  bool
	panicCompile bool
	failExecute  bool
}

func (e *countingEngine) Compile(program engine.Program, exampleInputs []engine.TensorSpec,
	options engine.NamedValuesMap) (engine.Artifact, error) {
	e.compiles.Add(1)
	if e.failCompile {
		return nil, errors.New("device does not support this program")
	}
	if e.panicCompile {
		panic("engine bug")
	}
	artifact, err := e.Engine.Compile(program, exampleInputs, options)
	if err != nil || !e.failExecute {
		return artifact, err
	}
	return &failingArtifact{Artifact: artifact}, nil
}

// failingArtifact compiles fine but fails at execution.
type failingArtifact struct {
	engine.Artifact
}

func (a *failingArtifact) Execute(inputs []*engine.Buffer) ([]*engine.Buffer, error) {
	return nil, errors.New("device lost")
}

func newCountingEngine(t *testing.T) *countingEngine {
	e, err := engine.NewWithConfig("hostcpu")
	require.NoError(t, err)
	return &countingEngine{Engine: e}
}

func newTestSession(t *testing.T, e engine.Engine, opts ...func(*SessionConfig) *SessionConfig) *Session {
	cfg := New(e)
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	s, err := cfg.Done()
	require.NoError(t, err)
	return s
}

// buildFusedModel returns a graph with two fused submodules over a rank-4 input:
//
//	fused_0: relu(x * 2)
//	fused_1: sigmoid(y - 1)
//	output:  fused_1(fused_0(x)) + 1	(the final add stays interpreted)
func buildFusedModel() *graphs.Graph {
	fused0 := graphs.New("fused_0")
	x := fused0.Input("x")
	fused0.Return(fused0.Apply(graphs.OpRelu,
		fused0.Apply(graphs.OpMul, x, fused0.Constant(tensors.FromScalar(float32(2))))))

	fused1 := graphs.New("fused_1")
	y := fused1.Input("y")
	fused1.Return(fused1.Apply(graphs.OpSigmoid,
		fused1.Apply(graphs.OpSub, y, fused1.Constant(tensors.FromScalar(float32(1))))))

	g := graphs.New("model")
	in := g.Input("x")
	h := g.GetItem(g.CallModule("fused_0", fused0, in), 0)
	out := g.GetItem(g.CallModule("fused_1", fused1, h), 0)
	g.Return(g.Apply(graphs.OpAdd, out, g.Constant(tensors.FromScalar(float32(1)))))
	return g
}

// rampTensor fills a tensor of the given shape with small increasing values.
func rampTensor(dimensions ...int) *tensors.Tensor {
	size := 1
	for _, dim := range dimensions {
		size *= dim
	}
	flat := make([]float32, size)
	for ii := range flat {
		flat[ii] = float32(ii%7) - 3
	}
	return tensors.FromFlatAndDimensions(flat, dimensions...)
}

func TestExecutePartitioned(t *testing.T) {
	e := newCountingEngine(t)
	s := newTestSession(t, e)
	g := buildFusedModel()

	input := rampTensor(1, 3, 224, 224)
	want := must.M1(g.Call(input))

	result, err := s.Execute(g, input)
	require.NoError(t, err)
	got, ok := result.(*tensors.Tensor) // Single output: the bare tensor.
	require.True(t, ok, "expected a bare *tensors.Tensor, got %T", result)
	require.True(t, want[0].Equal(got))

	// Two fused submodules, compiled once each.
	require.EqualValues(t, 2, e.compiles.Load())
	require.Equal(t, 1, s.Cache().NumPartitioned())
	require.Equal(t, 2, s.Cache().NumArtifacts())

	// Same signature: cache hits all the way, no recompilation, and the very same
	// partitioned graph object is reused.
	signature := argumentsSignature(g, []any{input})
	partitionedBefore, found := s.Cache().Partitioned(signature)
	require.True(t, found)
	_, err = s.Execute(g, rampTensor(1, 3, 224, 224))
	require.NoError(t, err)
	require.EqualValues(t, 2, e.compiles.Load())
	require.Equal(t, 1, s.Cache().NumPartitioned())
	partitionedAfter, found := s.Cache().Partitioned(signature)
	require.True(t, found)
	require.Same(t, partitionedBefore, partitionedAfter)

	// New shape, new signature: a second partitioning with fresh partition ids,
	// and artifacts specialized to the new shape.
	half := rampTensor(1, 3, 112, 112)
	wantHalf := must.M1(g.Call(half))
	result, err = s.Execute(g, half)
	require.NoError(t, err)
	require.True(t, wantHalf[0].Equal(result.(*tensors.Tensor)))
	require.EqualValues(t, 4, e.compiles.Load())
	require.Equal(t, 2, s.Cache().NumPartitioned())
	require.Equal(t, 4, s.Cache().NumArtifacts())

	// The original graph was never touched: its submodules are plain graphs.
	_, isExecutor := g.Submodule("fused_0").(*PartitionExecutor)
	require.False(t, isExecutor)
}

func TestExecuteMultiOutput(t *testing.T) {
	fused := graphs.New("fused_0")
	x := fused.Input("x")
	fused.Return(fused.Apply(graphs.OpRelu, x), fused.Apply(graphs.OpSigmoid, x))

	g := graphs.New("two_headed")
	in := g.Input("x")
	call := g.CallModule("fused_0", fused, in)
	g.Return(g.GetItem(call, 0), g.GetItem(call, 1))

	s := newTestSession(t, newCountingEngine(t))
	result, err := s.Execute(g, rampTensor(4))
	require.NoError(t, err)
	outputs, ok := result.([]*tensors.Tensor) // Multiple outputs: the ordered slice.
	require.True(t, ok, "expected []*tensors.Tensor, got %T", result)
	require.Len(t, outputs, 2)

	want := must.M1(g.Call(rampTensor(4)))
	require.True(t, want[0].Equal(outputs[0]))
	require.True(t, want[1].Equal(outputs[1]))
}

func TestPermanentFallbackOnCompileError(t *testing.T) {
	e := newCountingEngine(t)
	e.failCompile = true
	s := newTestSession(t, e)
	g := buildFusedModel()
	input := rampTensor(2, 3)
	want := must.M1(g.Call(input))

	// Execution still succeeds, interpreted.
	result, err := s.Execute(g, input)
	require.NoError(t, err)
	require.True(t, want[0].Equal(result.(*tensors.Tensor)))
	require.EqualValues(t, 2, e.compiles.Load())
	require.Equal(t, 0, s.Cache().NumArtifacts())

	// Both executors are permanently fallen back: no retry on later calls.
	signature := argumentsSignature(g, []any{input})
	partitioned, found := s.Cache().Partitioned(signature)
	require.True(t, found)
	for _, name := range partitioned.SubmoduleNames() {
		executor := partitioned.Submodule(name).(*PartitionExecutor)
		require.Equal(t, ExecutorFallback, executor.State())
	}
	_, err = s.Execute(g, input)
	require.NoError(t, err)
	require.EqualValues(t, 2, e.compiles.Load())
}

func TestPermanentFallbackOnExecuteError(t *testing.T) {
	e := newCountingEngine(t)
	e.failExecute = true
	s := newTestSession(t, e)
	g := buildFusedModel()
	input := rampTensor(5)
	want := must.M1(g.Call(input))

	result, err := s.Execute(g, input)
	require.NoError(t, err)
	require.True(t, want[0].Equal(result.(*tensors.Tensor)))
	// Compilation succeeded, so artifacts were stored even though execution fell back.
	require.EqualValues(t, 2, e.compiles.Load())
	require.Equal(t, 2, s.Cache().NumArtifacts())
}

func TestPermanentFallbackOnEnginePanic(t *testing.T) {
	e := newCountingEngine(t)
	e.panicCompile = true
	s := newTestSession(t, e)
	g := buildFusedModel()
	input := rampTensor(5)
	want := must.M1(g.Call(input))

	result, err := s.Execute(g, input)
	require.NoError(t, err)
	require.True(t, want[0].Equal(result.(*tensors.Tensor)))
}

func TestExecuteStrict(t *testing.T) {
	e := newCountingEngine(t)
	s := newTestSession(t, e, func(c *SessionConfig) *SessionConfig { return c.WithMode(ModeStrict) })
	g := buildFusedModel()
	input := rampTensor(2, 2)
	want := must.M1(g.Call(input))

	result, err := s.Execute(g, input)
	require.NoError(t, err)
	require.True(t, want[0].Equal(result.(*tensors.Tensor)))
	require.EqualValues(t, 1, e.compiles.Load()) // One whole-graph compilation.
	require.Equal(t, 1, s.Cache().NumArtifacts())

	// Same shape: reused.
	_, err = s.Execute(g, input)
	require.NoError(t, err)
	require.EqualValues(t, 1, e.compiles.Load())

	// Different shape: the specialized artifact is replaced.
	_, err = s.Execute(g, rampTensor(3, 3))
	require.NoError(t, err)
	require.EqualValues(t, 2, e.compiles.Load())
	require.Equal(t, 1, s.Cache().NumArtifacts())
}

func TestExecuteStrictPropagatesErrors(t *testing.T) {
	e := newCountingEngine(t)
	e.failCompile = true
	s := newTestSession(t, e)
	g := buildFusedModel()

	// No fallback in strict mode.
	_, err := s.ExecuteWithMode(ModeStrict, g, rampTensor(2, 2))
	require.ErrorContains(t, err, "does not support this program")

	e.failCompile = false
	e.failExecute = true
	_, err = s.ExecuteWithMode(ModeStrict, g, rampTensor(2, 2))
	require.ErrorContains(t, err, "device lost")
}

func TestExecuteUnknownMode(t *testing.T) {
	s := newTestSession(t, newCountingEngine(t))
	_, err := s.ExecuteWithMode(Mode(42), buildFusedModel(), rampTensor(2))
	require.ErrorContains(t, err, "unexpected value 42")

	_, err = New(s.Engine()).WithMode(Mode(42)).Done()
	require.ErrorContains(t, err, "unexpected value 42")

	_, err = New(nil).Done()
	require.ErrorContains(t, err, "non-nil engine")
}

func TestReuseArtifactsDisabled(t *testing.T) {
	e := newCountingEngine(t)
	s := newTestSession(t, e, func(c *SessionConfig) *SessionConfig { return c.ReuseArtifacts(false) })
	g := buildFusedModel()
	input := rampTensor(4)

	for range 3 {
		_, err := s.Execute(g, input)
		require.NoError(t, err)
	}
	// Every execution recompiles both partitions, but artifacts are still stored.
	require.EqualValues(t, 6, e.compiles.Load())
	require.Equal(t, 2, s.Cache().NumArtifacts())
}

func TestClearCaches(t *testing.T) {
	e := newCountingEngine(t)
	s := newTestSession(t, e)
	g := buildFusedModel()
	input := rampTensor(4)

	_, err := s.Execute(g, input)
	require.NoError(t, err)
	require.Equal(t, 2, s.Cache().NumArtifacts())
	idsBefore := s.Cache().nextPartitionID

	s.ClearCaches()
	require.Equal(t, 0, s.Cache().NumArtifacts())
	require.Equal(t, 0, s.Cache().NumPartitioned())

	// Re-execution repartitions and recompiles, with fresh ids: ids survive Clear.
	_, err = s.Execute(g, input)
	require.NoError(t, err)
	require.EqualValues(t, 4, e.compiles.Load())
	require.Greater(t, s.Cache().nextPartitionID, idsBefore)
}

func TestAllowSingleOpFusionDisabled(t *testing.T) {
	fused := graphs.New("fused_0")
	fused.Return(fused.Apply(graphs.OpRelu, fused.Input("x")))
	g := graphs.New("tiny")
	g.Return(g.GetItem(g.CallModule("fused_0", fused, g.Input("x")), 0))

	e := newCountingEngine(t)
	s := newTestSession(t, e, func(c *SessionConfig) *SessionConfig { return c.AllowSingleOpFusion(false) })

	input := rampTensor(4)
	want := must.M1(g.Call(input))
	result, err := s.Execute(g, input)
	require.NoError(t, err)
	require.True(t, want[0].Equal(result.(*tensors.Tensor)))
	// The single-op partition stays interpreted: nothing was compiled.
	require.EqualValues(t, 0, e.compiles.Load())
}

func TestScalarArguments(t *testing.T) {
	fused := graphs.New("fused_0")
	x, y := fused.Input("x"), fused.Input("y")
	fused.Return(fused.Apply(graphs.OpMul, x, y))
	g := graphs.New("scaled")
	a, b := g.Input("x"), g.Input("scale")
	g.Return(g.GetItem(g.CallModule("fused_0", fused, a, b), 0))

	s := newTestSession(t, newCountingEngine(t))
	result, err := s.Execute(g, rampTensor(3), float32(10))
	require.NoError(t, err)
	require.Equal(t, []float32{-30, -20, -10}, tensors.Flat[float32](result.(*tensors.Tensor)))

	// Unsupported argument types are rejected up front.
	_, err = s.Execute(g, rampTensor(3), "not a tensor")
	require.ErrorContains(t, err, "argument #1")
}

func TestSessionLabel(t *testing.T) {
	e := newCountingEngine(t)
	s := newTestSession(t, e, func(c *SessionConfig) *SessionConfig { return c.WithModelHash("resnet50-v1") })
	require.Equal(t, "resnet50-v1", s.Cache().Label())

	// Without a model hash the label is a fresh UUID.
	s2 := newTestSession(t, e)
	require.NotEmpty(t, s2.Cache().Label())
	require.NotEqual(t, s.Cache().Label(), s2.Cache().Label())
}
