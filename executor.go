package gograft

import (
	"fmt"

	"github.com/gograft/gograft/engine"
	"github.com/gograft/gograft/graphs"
	"github.com/gograft/gograft/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

//go:generate go tool enumer -type=ExecutorState executor.go

// ExecutorState is the state of a PartitionExecutor: executing natively, or
// permanently fallen back to the interpreter.
type ExecutorState int

const (
	ExecutorActive ExecutorState = iota
	ExecutorFallback
)

// PartitionExecutor routes the calls of one fused submodule to a compiled engine
// artifact. It implements graphs.Module, so the partitioner splices it into the
// graph in place of the original submodule.
//
// Compilation is lazy, on the first call. Any error on the native path --
// compilation, argument conversion or execution, including a panicking engine --
// permanently switches the executor to the interpreted original: the transition is
// one-way, logged once, and subsequent calls don't retry the engine.
type PartitionExecutor struct {
	session  *Session
	original graphs.Module
	id       int
	name     string
	state    ExecutorState
}

func newPartitionExecutor(session *Session, original graphs.Module, id int, name string) *PartitionExecutor {
	return &PartitionExecutor{
		session:  session,
		original: original,
		id:       id,
		name:     name,
	}
}

// ID returns the partition id, the key of the executor's artifact in the session
// cache.
func (e *PartitionExecutor) ID() int { return e.id }

// State returns the current state of the executor.
func (e *PartitionExecutor) State() ExecutorState { return e.state }

// Original returns the submodule the executor replaced.
func (e *PartitionExecutor) Original() graphs.Module { return e.original }

// Call implements graphs.Module.
func (e *PartitionExecutor) Call(args ...*tensors.Tensor) ([]*tensors.Tensor, error) {
	if e.state == ExecutorActive {
		results, err := e.callEngine(args)
		if err == nil {
			return results, nil
		}
		e.state = ExecutorFallback
		klog.Warningf("gograft %s: native execution failed, partition permanently falls back to "+
			"interpreted execution: %v", e.label(), err)
	}
	return e.original.Call(args...)
}

// callEngine runs the native path: get or compile the artifact, convert arguments,
// execute, convert results. Engine panics are converted to errors, so a misbehaving
// engine triggers fallback instead of unwinding through the graph execution.
func (e *PartitionExecutor) callEngine(args []*tensors.Tensor) (results []*tensors.Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("engine panicked: %v", r)
		}
	}()

	cache := e.session.cache
	artifact, found := cache.Artifact(e.id)
	if !found || !e.session.reuseArtifacts {
		artifact, err = e.compile(args)
		if err != nil {
			return nil, err
		}
		cache.StoreArtifact(e.id, artifact)
	}

	inputs, err := buffersFromTensors(args, artifact.InputSpecs())
	if err != nil {
		return nil, err
	}
	outputs, err := artifact.Execute(inputs)
	if err != nil {
		return nil, err
	}
	return tensorsFromBuffers(outputs)
}

func (e *PartitionExecutor) compile(args []*tensors.Tensor) (engine.Artifact, error) {
	program, ok := e.original.(engine.Program)
	if !ok {
		return nil, errors.Errorf("%s: submodule of type %T is not compilable", e.label(), e.original)
	}
	exampleInputs := make([]engine.TensorSpec, len(args))
	for ii, arg := range args {
		spec, err := engine.MakeTensorSpecOrError(arg.DType(), arg.Shape()...)
		if err != nil {
			return nil, err
		}
		exampleInputs[ii] = spec
	}
	artifact, err := e.session.eng.Compile(program, exampleInputs, e.session.engineOptions)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: compilation failed", e.label())
	}
	klog.V(1).Infof("gograft %s: compiled for inputs %v", e.label(), exampleInputs)
	return artifact, nil
}

// label identifies the executor in logs: cache label plus partition id.
func (e *PartitionExecutor) label() string {
	return fmt.Sprintf("partition %s/%d (%s)", e.session.cache.Label(), e.id, e.name)
}
