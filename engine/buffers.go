package engine

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/gograft/gograft/dtypes"
	"github.com/pkg/errors"
)

// Buffer is the runtime-side representation of a value: a flat host-memory buffer
// with an explicit element type and dimensions, in row-major order.
//
// Unlike framework tensors, a Buffer's storage is raw bytes: this is the format
// artifacts consume and produce.
type Buffer struct {
	dtype      dtypes.DType
	dimensions []int
	data       []byte
}

// NewBuffer creates a zero-initialized Buffer of the given dtype and dimensions.
func NewBuffer(dtype dtypes.DType, dimensions ...int) *Buffer {
	return &Buffer{
		dtype:      dtype,
		dimensions: slices.Clone(dimensions),
		data:       make([]byte, dtype.SizeForDimensions(dimensions...)),
	}
}

// BufferFromFlat creates a Buffer copying the given flat data. The dtype is inferred
// from the slice element type.
func BufferFromFlat[T dtypes.Supported](flat []T, dimensions ...int) (*Buffer, error) {
	dtype := dtypes.FromGenericsType[T]()
	spec, err := MakeTensorSpecOrError(dtype, dimensions...)
	if err != nil {
		return nil, err
	}
	if len(flat) != spec.Size() {
		return nil, errors.Errorf("BufferFromFlat: flat slice has %d values, dimensions %v require %d",
			len(flat), dimensions, spec.Size())
	}
	b := NewBuffer(dtype, dimensions...)
	copy(b.data, unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(flat))), len(b.data)))
	return b, nil
}

// BufferFromFlatAny is the dynamically typed version of BufferFromFlat: flat must be
// a slice of one of the supported Go types (see dtypes.Supported).
func BufferFromFlatAny(flat any, dimensions ...int) (*Buffer, error) {
	switch typedFlat := flat.(type) {
	case []bool:
		return BufferFromFlat(typedFlat, dimensions...)
	case []int8:
		return BufferFromFlat(typedFlat, dimensions...)
	case []int16:
		return BufferFromFlat(typedFlat, dimensions...)
	case []int32:
		return BufferFromFlat(typedFlat, dimensions...)
	case []int64:
		return BufferFromFlat(typedFlat, dimensions...)
	case []uint8:
		return BufferFromFlat(typedFlat, dimensions...)
	case []uint16:
		return BufferFromFlat(typedFlat, dimensions...)
	case []uint32:
		return BufferFromFlat(typedFlat, dimensions...)
	case []uint64:
		return BufferFromFlat(typedFlat, dimensions...)
	case []float32:
		return BufferFromFlat(typedFlat, dimensions...)
	case []float64:
		return BufferFromFlat(typedFlat, dimensions...)
	}
	return nil, errors.Errorf("BufferFromFlatAny: unsupported flat slice type %T", flat)
}

// BufferFlat returns a typed view of the buffer's flat data. The view aliases the
// buffer storage; mutating it mutates the buffer.
// It returns an error if T doesn't match the buffer's dtype.
func BufferFlat[T dtypes.Supported](b *Buffer) ([]T, error) {
	dtype := dtypes.FromGenericsType[T]()
	if dtype != b.dtype {
		return nil, errors.Errorf("BufferFlat: buffer has dtype %s, requested %s", b.dtype, dtype)
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b.data))), b.Size()), nil
}

// DType returns the element type of the buffer.
func (b *Buffer) DType() dtypes.DType { return b.dtype }

// Dimensions returns a copy of the buffer dimensions.
func (b *Buffer) Dimensions() []int { return slices.Clone(b.dimensions) }

// Spec returns the TensorSpec describing the buffer.
func (b *Buffer) Spec() TensorSpec {
	return TensorSpec{DType: b.dtype, Dimensions: slices.Clone(b.dimensions)}
}

// Size returns the number of elements.
func (b *Buffer) Size() int {
	size := 1
	for _, dim := range b.dimensions {
		size *= dim
	}
	return size
}

// Bytes returns the raw backing storage. The returned slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	newB := NewBuffer(b.dtype, b.dimensions...)
	copy(newB.data, b.data)
	return newB
}

// String implements fmt.Stringer.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer[%s, %d bytes]", b.Spec(), len(b.data))
}
