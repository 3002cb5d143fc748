package engine

import "sync/atomic"

// Clock stamps executed steps with a strictly increasing sequence number.
//
// Each run gets its own clock starting at 0, so the first step is seq 1.
// Stored step results are ordered by seq, never by wall-clock time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
