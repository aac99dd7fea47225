package gograft

import (
	"fmt"
	"strings"

	"github.com/gograft/gograft/graphs"
	"github.com/gograft/gograft/tensors"
)

// argumentsSignature builds the key that identifies a graph specialized to
// concrete arguments: the graph id followed by, per argument, its position and
// either its dtype and shape (tensors) or its Go type and value (everything else).
//
// Two executions with the same signature share the same partitioning and the same
// compiled artifacts. The encoding is not collision-free -- a crafted non-tensor
// value whose formatting embeds a separator can collide with a different argument
// list -- and collisions are not guarded against: they silently map to the same
// cache entry.
func argumentsSignature(g *graphs.Graph, args []any) string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "%d", g.ID())
	for ii, arg := range args {
		if t, ok := arg.(*tensors.Tensor); ok {
			_, _ = fmt.Fprintf(&sb, ",%d:%s:%v", ii, t.DType(), t.Shape())
		} else {
			_, _ = fmt.Fprintf(&sb, ",%d:%T:val(%v)", ii, arg, arg)
		}
	}
	return sb.String()
}
