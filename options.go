package gograft

import (
	"github.com/gograft/gograft/engine"
	"github.com/pkg/errors"
)

//go:generate go tool enumer -type=Mode options.go

// Mode selects how Session.Execute runs a graph.
type Mode int

const (
	// ModePartitioned compiles only the fused sub-graphs, with permanent
	// per-partition fallback to interpreted execution on any native-path error.
	// This is the default.
	ModePartitioned Mode = iota

	// ModeStrict compiles and runs the whole graph natively. Errors propagate to
	// the caller, nothing falls back.
	ModeStrict
)

// SessionConfig accumulates the options to create a Session. Create it with New,
// set options with the chained methods and call Done when finished.
type SessionConfig struct {
	eng                 engine.Engine
	mode                Mode
	reuseArtifacts      bool
	allowSingleOpFusion bool
	modelHash           string
	engineOptions       engine.NamedValuesMap
}

// New creates the configuration for a Session on the given engine. Call Done to
// build the Session.
//
// Defaults: ModePartitioned, artifact reuse enabled, single-op fusion enabled.
func New(eng engine.Engine) *SessionConfig {
	return &SessionConfig{
		eng:                 eng,
		mode:                ModePartitioned,
		reuseArtifacts:      true,
		allowSingleOpFusion: true,
	}
}

// WithMode sets the default execution mode used by Session.Execute.
func (c *SessionConfig) WithMode(mode Mode) *SessionConfig {
	c.mode = mode
	return c
}

// ReuseArtifacts controls the compiled-artifact cache. When disabled, every
// execution recompiles its partitions; compiled artifacts are still stored, so
// re-enabling reuse is meaningful. Enabled by default.
func (c *SessionConfig) ReuseArtifacts(reuse bool) *SessionConfig {
	c.reuseArtifacts = reuse
	return c
}

// AllowSingleOpFusion controls whether fused submodules containing a single
// operation are worth compiling, or are left to the interpreter. Enabled by
// default.
func (c *SessionConfig) AllowSingleOpFusion(allow bool) *SessionConfig {
	c.allowSingleOpFusion = allow
	return c
}

// WithModelHash sets a stable identifier of the model, used to label the session
// caches. Without one, a random UUID is used.
func (c *SessionConfig) WithModelHash(hash string) *SessionConfig {
	c.modelHash = hash
	return c
}

// WithEngineOptions sets engine-specific options passed verbatim to every
// Engine.Compile call.
func (c *SessionConfig) WithEngineOptions(options engine.NamedValuesMap) *SessionConfig {
	c.engineOptions = options
	return c
}

// Done validates the configuration and creates the Session.
func (c *SessionConfig) Done() (*Session, error) {
	if c.eng == nil {
		return nil, errors.New("gograft.New requires a non-nil engine")
	}
	if !c.mode.IsAMode() {
		return nil, errors.Errorf("received unexpected value %d for the execution mode", int(c.mode))
	}
	if err := c.engineOptions.Validate(); err != nil {
		return nil, err
	}
	return newSession(c), nil
}
