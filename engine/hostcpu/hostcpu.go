// Package hostcpu implements a pure Go reference engine running on the host CPU.
//
// Compilation inlines a *graphs.Graph (submodules included) into a flat sequence of
// instructions over value registers, specialized to the dtypes and dimensions of
// the example inputs. Anything the engine cannot run is rejected at compile time,
// so Execute only fails on argument mismatches.
//
// To use it, simply import it:
//
//	import _ "github.com/gograft/gograft/engine/hostcpu"
//
// It registers itself under the name "hostcpu". The configuration string is unused
// and must be empty.
package hostcpu

import (
	"sync/atomic"

	"github.com/gograft/gograft/engine"
	"github.com/gograft/gograft/graphs"
	"github.com/pkg/errors"
)

// Name of the engine, it is registered under this name.
const Name = "hostcpu"

func init() {
	engine.Register(Name, New)
}

// Engine implements engine.Engine on the host CPU.
type Engine struct {
	finalized atomic.Bool
}

// New creates a hostcpu Engine. The config string must be empty.
func New(config string) (engine.Engine, error) {
	if config != "" {
		return nil, errors.Errorf("engine %q takes no configuration, got %q", Name, config)
	}
	return &Engine{}, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return Name }

// Description implements engine.Engine.
func (e *Engine) Description() string {
	return "Pure Go reference engine, compiling graphs to an instruction list run on the host CPU"
}

// Compile implements engine.Engine. Only *graphs.Graph programs are supported, and
// all their submodules (recursively) must be *graphs.Graph as well.
func (e *Engine) Compile(program engine.Program, exampleInputs []engine.TensorSpec,
	options engine.NamedValuesMap) (engine.Artifact, error) {
	if e.finalized.Load() {
		return nil, errors.Errorf("engine %q was finalized", Name)
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	g, ok := program.(*graphs.Graph)
	if !ok {
		return nil, errors.Errorf("engine %q can only compile *graphs.Graph programs, got %T", Name, program)
	}
	if len(exampleInputs) != g.NumInputs() {
		return nil, errors.Errorf("graph %q takes %d inputs, got %d example input specs",
			g.Name(), g.NumInputs(), len(exampleInputs))
	}
	return compile(g, exampleInputs)
}

// Finalize implements engine.Engine.
func (e *Engine) Finalize() {
	e.finalized.Store(true)
}
