package ident

import "sync/atomic"

// Sequence is a monotonic counter used to mint correlation identifiers.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
// Two callers never observe the same value from Next.
type Sequence struct {
	n atomic.Int64
}

// Default is the process-wide sequence. Components take a *Sequence option
// and fall back to Default when none is supplied.
var Default = NewSequence()

// NewSequence creates a sequence starting at 0. The first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence whose next value is start+1.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.n.Store(start)
	return s
}

// Next increments the sequence and returns the new value.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last value handed out without incrementing.
func (s *Sequence) Current() int64 {
	return s.n.Load()
}
