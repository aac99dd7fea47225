package gograft

import (
	"github.com/google/uuid"
	"github.com/gograft/gograft/engine"
	"github.com/gograft/gograft/graphs"
	"k8s.io/klog/v2"
)

// SessionCache holds the two caches of a Session: partitioned graphs, keyed by
// argument signature (see argumentsSignature), and compiled artifacts, keyed by
// partition id.
//
// Partition ids are handed out by nextID: monotonically increasing within the
// session and never reused, not even by Clear. An id therefore always refers to
// the same partition for the lifetime of the session.
//
// The cache does no locking. A Session serializes access to it; if you share a
// Session across goroutines, serialize the executions yourself.
type SessionCache struct {
	label string

	partitioned map[string]*graphs.Graph
	artifacts   map[int]engine.Artifact

	// wholeGraph maps a graph id to the partition id used for whole-graph
	// (ModeStrict) compilations, so they live in the same artifacts map.
	wholeGraph map[uint64]int

	nextPartitionID int
}

func newSessionCache(modelHash string) *SessionCache {
	label := modelHash
	if label == "" {
		label = uuid.NewString()
	}
	return &SessionCache{
		label:       label,
		partitioned: make(map[string]*graphs.Graph),
		artifacts:   make(map[int]engine.Artifact),
		wholeGraph:  make(map[uint64]int),
	}
}

// Label identifies the session caches: the configured model hash, or a random
// UUID. It shows up in log messages.
func (c *SessionCache) Label() string { return c.label }

// nextID hands out a fresh partition id.
func (c *SessionCache) nextID() int {
	id := c.nextPartitionID
	c.nextPartitionID++
	return id
}

// Partitioned returns the partitioned graph cached under the given signature.
func (c *SessionCache) Partitioned(signature string) (*graphs.Graph, bool) {
	g, found := c.partitioned[signature]
	return g, found
}

// StorePartitioned caches a partitioned graph under the given signature.
func (c *SessionCache) StorePartitioned(signature string, g *graphs.Graph) {
	c.partitioned[signature] = g
}

// Artifact returns the compiled artifact cached for the given partition id.
func (c *SessionCache) Artifact(id int) (engine.Artifact, bool) {
	artifact, found := c.artifacts[id]
	return artifact, found
}

// StoreArtifact caches the artifact compiled for the given partition id. A
// previously stored artifact for the same id is destroyed.
func (c *SessionCache) StoreArtifact(id int, artifact engine.Artifact) {
	if previous, found := c.artifacts[id]; found && previous != artifact {
		if err := previous.Destroy(); err != nil {
			klog.Warningf("gograft cache %q: failed to destroy replaced artifact for partition %d: %v",
				c.label, id, err)
		}
	}
	c.artifacts[id] = artifact
}

// wholeGraphID returns the partition id under which whole-graph compilations of
// the given graph are cached, assigning one on first use.
func (c *SessionCache) wholeGraphID(graphID uint64) int {
	if id, found := c.wholeGraph[graphID]; found {
		return id
	}
	id := c.nextID()
	c.wholeGraph[graphID] = id
	return id
}

// NumPartitioned returns the number of cached partitioned graphs.
func (c *SessionCache) NumPartitioned() int { return len(c.partitioned) }

// NumArtifacts returns the number of cached compiled artifacts.
func (c *SessionCache) NumArtifacts() int { return len(c.artifacts) }

// Clear destroys every cached artifact and drops every cached partitioned graph.
// The partition id counter is preserved, so ids are not reused after a Clear.
func (c *SessionCache) Clear() {
	for id, artifact := range c.artifacts {
		if err := artifact.Destroy(); err != nil {
			klog.Warningf("gograft cache %q: failed to destroy artifact for partition %d: %v",
				c.label, id, err)
		}
	}
	c.partitioned = make(map[string]*graphs.Graph)
	c.artifacts = make(map[int]engine.Artifact)
	c.wholeGraph = make(map[uint64]int)
}
