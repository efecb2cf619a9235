package engine

import "sync/atomic"

// Clock is the logical clock stamping evaluation steps.
//
// Step numbers order the trace of one evaluation. Wall-clock time is
// never used for ordering, so two evaluations of the same script produce
// the same trace.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
