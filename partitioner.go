package gograft

import (
	"strings"

	"github.com/gograft/gograft/graphs"
	"k8s.io/klog/v2"
)

// fusedMarker identifies the submodules the framework's fusion pass produced, by
// naming convention.
//
// TODO: replace the naming convention with an explicit marker on the call node.
const fusedMarker = "fused_"

// partition returns a copy of g with every fused submodule replaced by a
// PartitionExecutor. The copy shares g's nodes; g itself is never mutated, so the
// same graph can be partitioned again (for a different argument signature) from
// its pristine state.
//
// Each replacement gets a fresh partition id. If a submodule is already a
// PartitionExecutor (a previously partitioned copy fed back in), the executor's
// original submodule is wrapped, never the executor itself.
func (s *Session) partition(g *graphs.Graph) *graphs.Graph {
	partitioned := g.Clone()
	for _, node := range partitioned.Nodes() {
		if node.Kind() != graphs.KindCallModule || !strings.Contains(node.Target(), fusedMarker) {
			continue
		}
		original := partitioned.Submodule(node.Target())
		if executor, ok := original.(*PartitionExecutor); ok {
			original = executor.Original()
		}
		if !s.allowSingleOpFusion && isSingleOp(original) {
			klog.V(1).Infof("gograft: leaving single-op submodule %q to the interpreter", node.Target())
			continue
		}
		executor := newPartitionExecutor(s, original, s.cache.nextID(), node.Target())
		// The target is a registered submodule of the clone, Replace cannot fail.
		_ = partitioned.ReplaceSubmodule(node.Target(), executor)
	}
	return partitioned
}

// isSingleOp reports whether a submodule is a graph with at most one operator
// node. Opaque (non-graph) modules are never considered single-op.
func isSingleOp(module graphs.Module) bool {
	g, ok := module.(*graphs.Graph)
	if !ok {
		return false
	}
	operators := 0
	for _, node := range g.Nodes() {
		if node.Kind() == graphs.KindOperator || node.Kind() == graphs.KindCallModule {
			operators++
		}
	}
	return operators <= 1
}
