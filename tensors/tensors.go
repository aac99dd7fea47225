// Package tensors holds the calling framework's value representation: a Tensor is a
// multi-dimensional array with a dtypes.DType and a flat backing slice in row-major
// order.
//
// Tensors are what flows through a graphs.Graph during interpreted execution. The
// bridge (root package) converts them to engine.Buffer (flat host memory) at the
// native-runtime boundary, and back.
package tensors

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gograft/gograft/dtypes"
	"github.com/pkg/errors"
)

// Tensor is an immutable-by-convention multi-dimensional array.
//
// The flat data is stored as a slice of the dtype's Go type (see dtypes.DType.GoType),
// in row-major order. A scalar is a Tensor of rank 0 with one element.
type Tensor struct {
	dtype      dtypes.DType
	dimensions []int
	flat       any
}

// FromFlatAndDimensions creates a Tensor from a flat slice and its dimensions.
// The dtype is inferred from the slice element type.
//
// It panics (with a stack trace) if len(flat) doesn't match the dimensions, or if any
// dimension is <= 0.
func FromFlatAndDimensions[T dtypes.Supported](flat []T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	size := 1
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("tensors.FromFlatAndDimensions: dimension %v <= 0 in %v", dim, dimensions)
		}
		size *= dim
	}
	if len(flat) != size {
		exceptions.Panicf("tensors.FromFlatAndDimensions: flat slice has %d values, dimensions %v require %d",
			len(flat), dimensions, size)
	}
	return &Tensor{
		dtype:      dtype,
		dimensions: slices.Clone(dimensions),
		flat:       slices.Clone(flat),
	}
}

// FromScalar creates a rank-0 Tensor holding the given value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromFlatAndDimensions([]T{value})
}

// FromAnyValue converts a dynamically typed scalar (one of the Go types in
// dtypes.Supported, plus int which is stored as Int64) into a rank-0 Tensor.
// Values that are already a *Tensor are returned unchanged.
func FromAnyValue(value any) (*Tensor, error) {
	switch v := value.(type) {
	case *Tensor:
		return v, nil
	case bool:
		return FromScalar(v), nil
	case int:
		return FromScalar(int64(v)), nil
	case int8:
		return FromScalar(v), nil
	case int16:
		return FromScalar(v), nil
	case int32:
		return FromScalar(v), nil
	case int64:
		return FromScalar(v), nil
	case uint8:
		return FromScalar(v), nil
	case uint16:
		return FromScalar(v), nil
	case uint32:
		return FromScalar(v), nil
	case uint64:
		return FromScalar(v), nil
	case float32:
		return FromScalar(v), nil
	case float64:
		return FromScalar(v), nil
	}
	return nil, errors.Errorf("cannot convert value of type %T to a tensors.Tensor", value)
}

// DType returns the element type of the tensor.
func (t *Tensor) DType() dtypes.DType { return t.dtype }

// Shape returns a copy of the tensor dimensions. A scalar has an empty shape.
func (t *Tensor) Shape() []int { return slices.Clone(t.dimensions) }

// Rank returns the number of axes. Scalars have rank 0.
func (t *Tensor) Rank() int { return len(t.dimensions) }

// IsScalar returns whether the tensor has rank 0.
func (t *Tensor) IsScalar() bool { return len(t.dimensions) == 0 }

// Size returns the number of elements.
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.dimensions {
		size *= dim
	}
	return size
}

// FlatAny returns the flat backing slice as an `any`. The caller must not mutate it.
func (t *Tensor) FlatAny() any { return t.flat }

// Flat returns the flat backing slice of a Tensor with the corresponding dtype.
// It panics if T doesn't match the tensor's dtype.
func Flat[T dtypes.Supported](t *Tensor) []T {
	flat, ok := t.flat.([]T)
	if !ok {
		exceptions.Panicf("tensors.Flat[%T]: tensor has dtype %s (stored as %T)",
			flat, t.dtype, t.flat)
	}
	return flat
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	flatV := reflect.ValueOf(t.flat)
	newFlat := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(newFlat, flatV)
	return &Tensor{
		dtype:      t.dtype,
		dimensions: slices.Clone(t.dimensions),
		flat:       newFlat.Interface(),
	}
}

// Equal returns whether two tensors have the same dtype, shape and values.
func (t *Tensor) Equal(other *Tensor) bool {
	if t.dtype != other.dtype || !slices.Equal(t.dimensions, other.dimensions) {
		return false
	}
	return reflect.DeepEqual(t.flat, other.flat)
}

// String implements fmt.Stringer. Large tensors print shape only.
func (t *Tensor) String() string {
	if t.Size() <= 8 {
		return fmt.Sprintf("(%s)%v: %v", t.dtype, t.dimensions, t.flat)
	}
	return fmt.Sprintf("(%s)%v: (%d values)", t.dtype, t.dimensions, t.Size())
}
