package engine

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gograft/gograft/dtypes"
	"github.com/pkg/errors"
)

// TensorSpec describes the element type and dimensions of one program input or
// output. If len(Dimensions) is 0, it represents a scalar.
type TensorSpec struct {
	DType      dtypes.DType
	Dimensions []int
}

// MakeTensorSpec creates a TensorSpec with the values given.
//
// It panics if any dimension is <= 0; see MakeTensorSpecOrError for the non-panicking
// version.
func MakeTensorSpec(dtype dtypes.DType, dimensions ...int) TensorSpec {
	spec, err := MakeTensorSpecOrError(dtype, dimensions...)
	if err != nil {
		exceptions.Panicf("engine.MakeTensorSpec: %v", err)
	}
	return spec
}

// MakeTensorSpecOrError is the same as MakeTensorSpec, but it returns an error
// instead if any of the dimensions is <= 0.
func MakeTensorSpecOrError(dtype dtypes.DType, dimensions ...int) (TensorSpec, error) {
	for _, dim := range dimensions {
		if dim <= 0 {
			return TensorSpec{}, errors.Errorf("cannot create a spec (%s)%v with an axis with dimension <= 0",
				dtype, dimensions)
		}
	}
	return TensorSpec{DType: dtype, Dimensions: slices.Clone(dimensions)}, nil
}

// IsScalar returns whether the spec is a scalar, i.e. its Rank() == 0.
func (s TensorSpec) IsScalar() bool { return s.Rank() == 0 }

// Rank is the number of axes, a shortcut to len(Dimensions). Scalars have rank 0.
func (s TensorSpec) Rank() int { return len(s.Dimensions) }

// Size returns the total number of elements. A scalar has size 1.
func (s TensorSpec) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Memory returns the bytes needed to store a flat buffer of this spec.
func (s TensorSpec) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Clone makes a deep copy of the spec.
func (s TensorSpec) Clone() TensorSpec {
	return TensorSpec{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// Equal returns whether two specs have the same dtype and dimensions.
func (s TensorSpec) Equal(other TensorSpec) bool {
	return s.DType == other.DType && slices.Equal(s.Dimensions, other.Dimensions)
}

// String implements fmt.Stringer and pretty-prints the spec.
func (s TensorSpec) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)[]", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}
