package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	config string
}

func (e *fakeEngine) Name() string        { return "fake" }
func (e *fakeEngine) Description() string { return "fake engine for tests" }
func (e *fakeEngine) Compile(program Program, exampleInputs []TensorSpec, options NamedValuesMap) (Artifact, error) {
	return nil, nil
}
func (e *fakeEngine) Finalize() {}

func init() {
	Register("fake", func(config string) (Engine, error) {
		return &fakeEngine{config: config}, nil
	})
}

func TestNewWithConfig(t *testing.T) {
	e, err := NewWithConfig("fake")
	require.NoError(t, err)
	require.Equal(t, "fake", e.Name())

	// "name:config" splits on the first colon.
	e, err = NewWithConfig("fake:opt=1:2")
	require.NoError(t, err)
	require.Equal(t, "opt=1:2", e.(*fakeEngine).config)

	// Empty name selects the first registered engine.
	e, err = NewWithConfig("")
	require.NoError(t, err)
	require.NotNil(t, e)

	_, err = NewWithConfig("bogus")
	require.ErrorContains(t, err, `no engine "bogus" registered`)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvEngineConfig, "fake:from-env")
	e, err := New()
	require.NoError(t, err)
	require.Equal(t, "from-env", e.(*fakeEngine).config)

	t.Setenv(EnvEngineConfig, "bogus")
	_, err = New()
	require.Error(t, err)
}
