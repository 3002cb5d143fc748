package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialGenerator_Sequence(t *testing.T) {
	gen := NewSequentialGenerator()

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", gen.Generate())
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", gen.Generate())
	assert.Equal(t, "00000000-0000-0000-0000-000000000003", gen.Generate())
}

func TestSequentialGenerator_Reset(t *testing.T) {
	gen := NewSequentialGenerator()
	gen.Generate()
	gen.Generate()

	gen.Reset()

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", gen.Generate())
}

func TestSequentialGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequentialGenerator()

	var mu sync.Mutex
	ids := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1000)
}
