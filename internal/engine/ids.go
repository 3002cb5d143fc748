package engine

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers for runs and for the guid() builtin.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable run IDs.
//
// Runs listed by ID come back in start order, which keeps history output
// readable. Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// UUIDv4Generator generates random identifiers for guid().
type UUIDv4Generator struct{}

// Generate creates a new random UUID.
func (g UUIDv4Generator) Generate() string {
	return uuid.NewString()
}

// FixedGenerator returns predetermined identifiers, for tests and golden
// scenarios.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedGenerator("run-1", "run-2")
//	gen.Generate() // "run-1"
//	gen.Generate() // "run-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics once every id has been consumed, so a test that generates more ids
// than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
