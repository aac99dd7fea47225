package gograft

import (
	"github.com/gograft/gograft/dtypes"
	"github.com/gograft/gograft/engine"
	"github.com/gograft/gograft/tensors"
	"github.com/pkg/errors"
)

// The adapter converts between the framework-side values (tensors, typed flat
// slices) and the runtime-side values (engine buffers, raw host memory) at the
// boundary of every native execution.

// buffersFromTensors converts execution arguments to engine buffers, validating
// them against the specs the artifact was compiled for.
func buffersFromTensors(args []*tensors.Tensor, specs []engine.TensorSpec) ([]*engine.Buffer, error) {
	if len(args) != len(specs) {
		return nil, errors.Errorf("artifact takes %d inputs, got %d arguments", len(specs), len(args))
	}
	buffers := make([]*engine.Buffer, len(args))
	for ii, arg := range args {
		buffer, err := engine.BufferFromFlatAny(arg.FlatAny(), arg.Shape()...)
		if err != nil {
			return nil, errors.WithMessagef(err, "argument #%d", ii)
		}
		if !buffer.Spec().Equal(specs[ii]) {
			return nil, errors.Errorf("argument #%d is %s, artifact was compiled for %s",
				ii, buffer.Spec(), specs[ii])
		}
		buffers[ii] = buffer
	}
	return buffers, nil
}

// tensorsFromBuffers converts engine output buffers back to framework tensors.
// The tensors own their data, they don't alias the buffers.
func tensorsFromBuffers(buffers []*engine.Buffer) ([]*tensors.Tensor, error) {
	results := make([]*tensors.Tensor, len(buffers))
	for ii, buffer := range buffers {
		t, err := tensorFromBuffer(buffer)
		if err != nil {
			return nil, errors.WithMessagef(err, "output #%d", ii)
		}
		results[ii] = t
	}
	return results, nil
}

func tensorFromBuffer(buffer *engine.Buffer) (*tensors.Tensor, error) {
	switch buffer.DType() {
	case dtypes.Bool:
		return typedTensorFromBuffer[bool](buffer)
	case dtypes.Int8:
		return typedTensorFromBuffer[int8](buffer)
	case dtypes.Int16:
		return typedTensorFromBuffer[int16](buffer)
	case dtypes.Int32:
		return typedTensorFromBuffer[int32](buffer)
	case dtypes.Int64:
		return typedTensorFromBuffer[int64](buffer)
	case dtypes.Uint8:
		return typedTensorFromBuffer[uint8](buffer)
	case dtypes.Uint16:
		return typedTensorFromBuffer[uint16](buffer)
	case dtypes.Uint32:
		return typedTensorFromBuffer[uint32](buffer)
	case dtypes.Uint64:
		return typedTensorFromBuffer[uint64](buffer)
	case dtypes.Float32:
		return typedTensorFromBuffer[float32](buffer)
	case dtypes.Float64:
		return typedTensorFromBuffer[float64](buffer)
	}
	return nil, errors.Errorf("cannot convert buffer of dtype %s to a tensor", buffer.DType())
}

func typedTensorFromBuffer[T dtypes.Supported](buffer *engine.Buffer) (*tensors.Tensor, error) {
	flat, err := engine.BufferFlat[T](buffer)
	if err != nil {
		return nil, err
	}
	// FromFlatAndDimensions copies flat, so the tensor doesn't alias the buffer.
	return tensors.FromFlatAndDimensions(flat, buffer.Dimensions()...), nil
}

// collapseResults maps a result list to what Execute returns: the bare tensor for
// single-output graphs, the ordered slice otherwise.
func collapseResults(results []*tensors.Tensor) any {
	if len(results) == 1 {
		return results[0]
	}
	return results
}
