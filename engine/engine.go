// Package engine defines the boundary to a native inference runtime: the Engine
// interface (compilation of sub-graph programs into device-ready artifacts), the
// Artifact interface (execution over flat host-memory buffers), and the supporting
// types exchanged across that boundary (TensorSpec, Buffer, NamedValuesMap).
//
// The actual runtime is treated as a black box: gograft never looks inside an
// Artifact. Engines register themselves by name (see Register), typically from an
// init() in their package, and are selected with New or NewWithConfig.
//
// The package also provides InferRequest and AsyncInferQueue, a fixed-size pool of
// reusable asynchronous execution requests over one Artifact.
package engine

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Program is the sub-graph description an Engine compiles. It is intentionally
// narrow, so this package doesn't depend on the graphs package: *graphs.Graph
// implements it, and engines that need the full structure assert to the concrete
// type they support.
//
// Programs are shape-polymorphic: concrete dtypes and dimensions are only fixed at
// compile time, from the example inputs given to Engine.Compile.
type Program interface {
	// Name identifies the program, used for labeling artifacts and error messages.
	Name() string

	// NumInputs returns the number of inputs the program takes.
	NumInputs() int

	// NumOutputs returns the number of values the program returns.
	NumOutputs() int
}

// Artifact is an opaque handle to a compiled program, owned by the engine that
// compiled it. It is immutable after creation.
//
// Execute may be called any number of times; it may return an error on unsupported
// constructs, resource exhaustion or device errors.
type Artifact interface {
	// Name returns the label the artifact was compiled under.
	Name() string

	// InputSpecs returns the specs Execute expects, in input order.
	InputSpecs() []TensorSpec

	// OutputSpecs returns the specs of the buffers Execute returns, in output order.
	OutputSpecs() []TensorSpec

	// Execute runs the artifact with the given host buffers. The returned buffers
	// match OutputSpecs in length and order.
	Execute(inputs []*Buffer) ([]*Buffer, error)

	// Destroy releases the resources held by the artifact. The artifact is no
	// longer valid afterward. Destroy on an already-destroyed artifact is a no-op.
	Destroy() error
}

// Engine is the API a native inference runtime implements to be used by gograft.
type Engine interface {
	// Name returns the short name the engine was registered under. E.g.: "hostcpu".
	Name() string

	// Description is a longer description of the engine that can be used to pretty-print.
	Description() string

	// Compile turns a Program into an Artifact. exampleInputs carries the dtype and
	// shape of the example arguments observed at the call site -- engines may
	// specialize for or validate against them. options are engine-specific.
	Compile(program Program, exampleInputs []TensorSpec, options NamedValuesMap) (Artifact, error)

	// Finalize releases all resources associated with the engine immediately, and
	// makes the engine invalid.
	Finalize()
}

// Constructor takes an engine-specific config string (optionally empty) and returns
// a new Engine.
type Constructor func(config string) (Engine, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register an engine constructor under the given name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the engine configuration to use if GOGRAFT_ENGINE is not set.
// See NewWithConfig for the format.
var DefaultConfig string

// EnvEngineConfig is the environment variable with the default engine configuration.
//
// The format is "<engine_name>:<engine_configuration>", where "<engine_name>" is the
// name of a registered engine and "<engine_configuration>" is engine specific.
const EnvEngineConfig = "GOGRAFT_ENGINE"

// New returns a new Engine using the default configuration:
//
//  1. The environment variable GOGRAFT_ENGINE, if set.
//  2. The package variable DefaultConfig, if not empty.
//  3. The first registered engine, with an empty configuration.
//
// It returns an error if no engine was registered.
func New() (Engine, error) {
	if config, found := os.LookupEnv(EnvEngineConfig); found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig creates an Engine from a configuration string formatted as
// "<engine_name>:<engine_configuration>". An empty engine name selects the first
// registered engine.
func NewWithConfig(config string) (Engine, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.New(`no registered engines -- import one, e.g. _ "github.com/gograft/gograft/engine/hostcpu"`)
	}
	engineName := firstRegistered
	engineConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		engineName = config[:idx]
		engineConfig = config[idx+1:]
	} else if config != "" {
		engineName = config
		engineConfig = ""
	}
	constructor, found := registeredConstructors[engineName]
	if !found {
		return nil, errors.Errorf("no engine %q registered (configuration %q), known engines: %v",
			engineName, config, registeredNames())
	}
	return constructor(engineConfig)
}

func registeredNames() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	return names
}
