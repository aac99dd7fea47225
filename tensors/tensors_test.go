package tensors

import (
	"testing"

	"github.com/gograft/gograft/dtypes"
	"github.com/stretchr/testify/require"
)

func TestFromFlatAndDimensions(t *testing.T) {
	x := FromFlatAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.Equal(t, dtypes.Float32, x.DType())
	require.Equal(t, []int{2, 3}, x.Shape())
	require.Equal(t, 6, x.Size())
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, Flat[float32](x))

	require.Panics(t, func() { FromFlatAndDimensions([]float32{1, 2, 3}, 2, 2) })
	require.Panics(t, func() { FromFlatAndDimensions([]float32{}, 0) })
	require.Panics(t, func() { Flat[float64](x) })
}

func TestScalars(t *testing.T) {
	s := FromScalar(int64(7))
	require.True(t, s.IsScalar())
	require.Equal(t, 0, s.Rank())
	require.Equal(t, 1, s.Size())
	require.Equal(t, dtypes.Int64, s.DType())

	fromAny, err := FromAnyValue(7)
	require.NoError(t, err)
	require.True(t, s.Equal(fromAny))

	_, err = FromAnyValue("not a tensor")
	require.Error(t, err)

	// *Tensor passes through unchanged.
	same, err := FromAnyValue(s)
	require.NoError(t, err)
	require.Same(t, s, same)
}

func TestCloneAndEqual(t *testing.T) {
	x := FromFlatAndDimensions([]float64{1, 2, 3, 4}, 4)
	y := x.Clone()
	require.True(t, x.Equal(y))
	require.NotSame(t, x, y)

	Flat[float64](y)[0] = 100
	require.False(t, x.Equal(y))
	require.Equal(t, float64(1), Flat[float64](x)[0])
}
