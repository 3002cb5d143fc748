package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_ZeroStartUsesDefault(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, 0)
	assert.Equal(t, DefaultStart, clock.Now())
}

func TestDeterministicClock_AdvancesByStep(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	clock := NewDeterministicClock(start, time.Second)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start.Add(time.Second), clock.Now())
	assert.Equal(t, start.Add(2*time.Second), clock.Now())
	assert.Equal(t, int64(3), clock.Calls())
}

func TestDeterministicClock_ZeroStepIsFrozen(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	clock := NewDeterministicClock(start, 0)

	for i := 0; i < 5; i++ {
		assert.Equal(t, start, clock.Now())
	}
}

func TestDeterministicClock_ConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2024, 3, 1, 10, 30, 0, 0, zone)
	clock := NewDeterministicClock(start, 0)

	now := clock.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.True(t, now.Equal(start))
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, time.Minute)
	clock.Now()
	clock.Now()

	clock.Reset()

	assert.Equal(t, int64(0), clock.Calls())
	assert.Equal(t, DefaultStart, clock.Now())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, time.Millisecond)

	var wg sync.WaitGroup
	seen := make(chan time.Time, 1000)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		require.False(t, unique[ts], "duplicate instant %s", ts)
		unique[ts] = true
	}
	assert.Len(t, unique, 1000)
	assert.Equal(t, int64(1000), clock.Calls())
}
