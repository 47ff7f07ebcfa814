package testutil

import (
	"fmt"
	"sync"
)

// SeqIDs generates "<prefix>-1", "<prefix>-2", ... for deterministic point and
// run identifiers.
//
// Unlike engine.FixedGenerator it never runs out, which suits tests that add
// an unknown number of points.
//
// Thread-safety: SeqIDs is safe for concurrent use.
type SeqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSeqIDs creates a generator. An empty prefix defaults to "id".
func NewSeqIDs(prefix string) *SeqIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SeqIDs{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SeqIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
