// Package dtypes defines the DType enumeration of element types supported by gograft.
//
// The same DType is used on both sides of the bridge: by the framework-side tensors
// (package tensors) and by the engine-side host buffers (package engine).
package dtypes

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

//go:generate go tool enumer -type=DType dtypes.go

// DType is the element type of a tensor or buffer.
type DType int32

const (
	// InvalidDType represents an invalid (or not set) dtype.
	InvalidDType DType = iota

	// Bool is used as the output and input of logic operations.
	Bool

	Int8
	Int16
	Int32
	Int64

	Uint8
	Uint16
	Uint32
	Uint64

	// Float16 is IEEE 754 half-precision. There is no native Go type for it,
	// github.com/x448/float16 is used to hold and convert values.
	Float16

	Float32
	Float64
)

// Aliases, using the short names common in ML runtimes.
const (
	F16 = Float16
	F32 = Float32
	F64 = Float64
)

// MapOfNames maps the various standard spellings of the dtype names to their DType.
// It includes the enum names ("Float32"), their lower-case versions and the short
// forms ("F32", "f32").
var MapOfNames = map[string]DType{}

func init() {
	for _, dtype := range DTypeValues() {
		if dtype == InvalidDType {
			continue
		}
		MapOfNames[dtype.String()] = dtype
	}
	for name, dtype := range map[string]DType{
		"float16": Float16, "F16": Float16, "f16": Float16,
		"float32": Float32, "F32": Float32, "f32": Float32,
		"float64": Float64, "F64": Float64, "f64": Float64,
		"bool": Bool, "PRED": Bool, "pred": Bool,
		"int8": Int8, "int16": Int16, "int32": Int32, "int64": Int64,
		"uint8": Uint8, "uint16": Uint16, "uint32": Uint32, "uint64": Uint64,
	} {
		MapOfNames[name] = dtype
	}
}

// FromName converts a dtype name (in any of the spellings accepted by MapOfNames)
// to its DType. It returns an error for unknown names.
func FromName(name string) (DType, error) {
	dtype, found := MapOfNames[name]
	if !found {
		return InvalidDType, errors.Errorf("unknown dtype name %q", name)
	}
	return dtype, nil
}

// Supported lists the Go types that have a corresponding DType.
//
// Notice float16.Float16 is an alias to uint16, so Uint16 values are
// indistinguishable from Float16 values at the Go type level.
type Supported interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// FromGenericsType returns the DType for the Go type given as the generic parameter.
func FromGenericsType[T Supported]() DType {
	var t T
	return FromGoType(reflect.TypeOf(t))
}

// FromGoType returns the DType used to store values of the given Go type.
// It returns InvalidDType if the type is not supported.
func FromGoType(t reflect.Type) DType {
	switch t.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int8:
		return Int8
	case reflect.Int16:
		return Int16
	case reflect.Int32:
		return Int32
	case reflect.Int64, reflect.Int:
		return Int64
	case reflect.Uint8:
		return Uint8
	case reflect.Uint16:
		if t == float16Type {
			return Float16
		}
		return Uint16
	case reflect.Uint32:
		return Uint32
	case reflect.Uint64, reflect.Uint:
		return Uint64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	default:
		return InvalidDType
	}
}

var float16Type = reflect.TypeOf(float16.Float16(0))

// GoType returns the Go type used to store elements of the given DType.
// Float16 elements are stored as float16.Float16.
func (dtype DType) GoType() reflect.Type {
	switch dtype {
	case Bool:
		return reflect.TypeOf(false)
	case Int8:
		return reflect.TypeOf(int8(0))
	case Int16:
		return reflect.TypeOf(int16(0))
	case Int32:
		return reflect.TypeOf(int32(0))
	case Int64:
		return reflect.TypeOf(int64(0))
	case Uint8:
		return reflect.TypeOf(uint8(0))
	case Uint16:
		return reflect.TypeOf(uint16(0))
	case Uint32:
		return reflect.TypeOf(uint32(0))
	case Uint64:
		return reflect.TypeOf(uint64(0))
	case Float16:
		return float16Type
	case Float32:
		return reflect.TypeOf(float32(0))
	case Float64:
		return reflect.TypeOf(float64(0))
	default:
		return nil
	}
}

// Size returns the number of bytes used to store one element of the given DType.
func (dtype DType) Size() int {
	switch dtype {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16, Float16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// Memory returns the number of bytes used to store one element, as an uintptr.
func (dtype DType) Memory() uintptr {
	return uintptr(dtype.Size())
}

// SizeForDimensions returns the memory in bytes needed to store an array of the
// given dimensions with this DType. An empty list of dimensions is a scalar, with
// size equal to one element.
func (dtype DType) SizeForDimensions(dimensions ...int) int {
	size := dtype.Size()
	for _, dim := range dimensions {
		size *= dim
	}
	return size
}

// IsFloat returns whether the dtype is a floating point type (including Float16).
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == Float32 || dtype == Float64
}

// IsInt returns whether the dtype is a signed or unsigned integer type.
func (dtype DType) IsInt() bool {
	switch dtype {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// IsSupported returns whether the dtype is a valid value type for tensors and buffers.
func (dtype DType) IsSupported() bool {
	return dtype != InvalidDType && dtype.IsADType()
}
