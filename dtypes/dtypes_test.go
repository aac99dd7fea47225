package dtypes

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestMapOfNames(t *testing.T) {
	require.Equal(t, Float16, MapOfNames["Float16"])
	require.Equal(t, Float16, MapOfNames["float16"])
	require.Equal(t, Float16, MapOfNames["F16"])
	require.Equal(t, Float16, MapOfNames["f16"])

	require.Equal(t, Float32, MapOfNames["Float32"])
	require.Equal(t, Float32, MapOfNames["f32"])
	require.Equal(t, Bool, MapOfNames["PRED"])

	dtype, err := FromName("f64")
	require.NoError(t, err)
	require.Equal(t, Float64, dtype)
	_, err = FromName("quaternion")
	require.Error(t, err)
}

func TestGoTypeRoundTrip(t *testing.T) {
	for _, dtype := range DTypeValues() {
		if dtype == InvalidDType {
			continue
		}
		require.Equal(t, dtype, FromGoType(dtype.GoType()), "dtype %s", dtype)
	}
	require.Equal(t, Float32, FromGenericsType[float32]())
	require.Equal(t, Int64, FromGenericsType[int64]())

	// float16.Float16 is stored as uint16, the distinction only exists with reflection.
	require.Equal(t, Float16, FromGoType(reflect.TypeOf(float16.Fromfloat32(1.5))))
}

func TestSizes(t *testing.T) {
	require.Equal(t, 4, Float32.Size())
	require.Equal(t, 2, Float16.Size())
	require.Equal(t, 8, Int64.Size())
	require.Equal(t, 4*2*3, Float32.SizeForDimensions(2, 3))
	require.Equal(t, 8, Float64.SizeForDimensions()) // Scalar.
}
