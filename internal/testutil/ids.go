package testutil

import (
	"fmt"
	"sync"
)

// SequentialGenerator produces UUID-shaped identifiers from a counter:
//
//	00000000-0000-0000-0000-000000000001
//	00000000-0000-0000-0000-000000000002
//
// Unlike engine.FixedGenerator it never runs out, which suits scenarios that
// call guid() an unknown number of times. The same generator state always
// yields the same sequence, so golden snapshots stay byte-identical.
//
// Thread-safety: SequentialGenerator is safe for concurrent use.
type SequentialGenerator struct {
	mu sync.Mutex
	n  int64
}

// NewSequentialGenerator creates a generator whose first id ends in 1.
func NewSequentialGenerator() *SequentialGenerator {
	return &SequentialGenerator{}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator interface.
func (g *SequentialGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.n)
}

// Reset restarts the sequence.
func (g *SequentialGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
