package graphs

//go:generate go tool enumer -type=OpType ops.go

// OpType is the operation performed by a KindOperator node.
//
// The set is deliberately small: element-wise arithmetic with scalar broadcast,
// a rank-2 matrix multiplication and a few activations, enough to express the
// fused sub-graphs the partitioner extracts.
type OpType int

const (
	OpInvalid OpType = iota
	OpAdd
	OpSub
	OpMul
	OpMatMul
	OpRelu
	OpSigmoid
	OpRsqrt
)

// NumOperands returns the number of operands the op takes, or 0 for OpInvalid.
func (op OpType) NumOperands() int {
	switch op {
	case OpAdd, OpSub, OpMul, OpMatMul:
		return 2
	case OpRelu, OpSigmoid, OpRsqrt:
		return 1
	}
	return 0
}
