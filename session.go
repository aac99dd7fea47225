package gograft

import (
	"github.com/gograft/gograft/engine"
	"github.com/gograft/gograft/graphs"
	"github.com/gograft/gograft/tensors"
	"github.com/pkg/errors"
)

// Session executes graphs over one engine, with per-session caches.
//
// A Session is not safe for concurrent use: executions mutate the caches without
// locking. Create one session per goroutine, or serialize the calls.
type Session struct {
	eng   engine.Engine
	cache *SessionCache

	mode                Mode
	reuseArtifacts      bool
	allowSingleOpFusion bool
	engineOptions       engine.NamedValuesMap
}

func newSession(c *SessionConfig) *Session {
	return &Session{
		eng:                 c.eng,
		cache:               newSessionCache(c.modelHash),
		mode:                c.mode,
		reuseArtifacts:      c.reuseArtifacts,
		allowSingleOpFusion: c.allowSingleOpFusion,
		engineOptions:       c.engineOptions.Clone(),
	}
}

// Cache returns the session cache, for inspection.
func (s *Session) Cache() *SessionCache { return s.cache }

// Engine returns the engine the session compiles with.
func (s *Session) Engine() engine.Engine { return s.eng }

// Execute runs the graph with the given arguments in the session's configured
// mode (see ExecuteWithMode).
//
// Arguments are *tensors.Tensor values, or scalars of a supported Go type (they
// are promoted to rank-0 tensors). The result is the bare output value when the
// graph returns a single value, or a []*tensors.Tensor in graph output order
// otherwise.
func (s *Session) Execute(g *graphs.Graph, args ...any) (any, error) {
	return s.ExecuteWithMode(s.mode, g, args...)
}

// ExecuteWithMode runs the graph with the given arguments, overriding the
// session's configured mode:
//
//   - ModePartitioned partitions the graph (cached per argument signature) and
//     compiles each fused submodule on first call. A partition whose native path
//     fails, in any way, permanently falls back to interpreted execution; the
//     execution itself still succeeds.
//   - ModeStrict compiles and runs the whole graph natively, nothing falls back:
//     compile and execute errors are returned to the caller.
//
// Any other mode value is an error.
func (s *Session) ExecuteWithMode(mode Mode, g *graphs.Graph, args ...any) (any, error) {
	if g == nil {
		return nil, errors.New("Execute requires a non-nil graph")
	}
	tensorArgs, err := tensorArguments(args)
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModePartitioned:
		return s.executePartitioned(g, args, tensorArgs)
	case ModeStrict:
		return s.executeStrict(g, tensorArgs)
	}
	return nil, errors.Errorf("received unexpected value %d for the execution mode", int(mode))
}

// ClearCaches drops the cached partitioned graphs and destroys the cached
// artifacts. Partition ids are not reused afterward.
func (s *Session) ClearCaches() {
	s.cache.Clear()
}

func (s *Session) executePartitioned(g *graphs.Graph, args []any, tensorArgs []*tensors.Tensor) (any, error) {
	signature := argumentsSignature(g, args)
	partitioned, found := s.cache.Partitioned(signature)
	if !found {
		partitioned = s.partition(g)
		s.cache.StorePartitioned(signature, partitioned)
	}
	results, err := partitioned.Call(tensorArgs...)
	if err != nil {
		// Partition fallback already happened inside the executors; an error here
		// comes from the graph itself (or an opaque submodule) and propagates.
		return nil, err
	}
	return collapseResults(results), nil
}

func (s *Session) executeStrict(g *graphs.Graph, tensorArgs []*tensors.Tensor) (any, error) {
	exampleInputs := make([]engine.TensorSpec, len(tensorArgs))
	for ii, arg := range tensorArgs {
		spec, err := engine.MakeTensorSpecOrError(arg.DType(), arg.Shape()...)
		if err != nil {
			return nil, err
		}
		exampleInputs[ii] = spec
	}

	// Whole-graph compilations share the partition-id-keyed artifacts map, with
	// one id per graph. A cached artifact is only good for the specs it was
	// compiled for; different arguments recompile and replace it.
	id := s.cache.wholeGraphID(g.ID())
	artifact, found := s.cache.Artifact(id)
	if found && s.reuseArtifacts {
		if !specsEqual(artifact.InputSpecs(), exampleInputs) {
			found = false
		}
	} else {
		found = false
	}
	if !found {
		var err error
		artifact, err = s.eng.Compile(g, exampleInputs, s.engineOptions)
		if err != nil {
			return nil, errors.WithMessagef(err, "strict compilation of graph %q", g.Name())
		}
		s.cache.StoreArtifact(id, artifact)
	}

	inputs, err := buffersFromTensors(tensorArgs, artifact.InputSpecs())
	if err != nil {
		return nil, err
	}
	outputs, err := artifact.Execute(inputs)
	if err != nil {
		return nil, errors.WithMessagef(err, "strict execution of graph %q", g.Name())
	}
	results, err := tensorsFromBuffers(outputs)
	if err != nil {
		return nil, err
	}
	return collapseResults(results), nil
}

// tensorArguments promotes the dynamically typed arguments to tensors.
func tensorArguments(args []any) ([]*tensors.Tensor, error) {
	tensorArgs := make([]*tensors.Tensor, len(args))
	for ii, arg := range args {
		t, err := tensors.FromAnyValue(arg)
		if err != nil {
			return nil, errors.WithMessagef(err, "argument #%d", ii)
		}
		tensorArgs[ii] = t
	}
	return tensorArgs, nil
}

func specsEqual(a, b []engine.TensorSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for ii := range a {
		if !a[ii].Equal(b[ii]) {
			return false
		}
	}
	return true
}
