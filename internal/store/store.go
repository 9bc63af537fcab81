package store

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// MaxChannels is the largest capacity a store supports; the dirty set is a
// single 64-bit word.
const MaxChannels = 64

type shared struct {
	capacity int
	values   [MaxChannels]uint64
	dirty    atomic.Uint64
}

// Writer is the recorder's view of the store.
type Writer struct {
	s *shared
}

// Drainer is the coordinator's view of the store.
type Drainer struct {
	s *shared
}

// New allocates a store for capacity channels and returns its two views.
//
// Returns an error if capacity is not between 1 and [MaxChannels].
func New(capacity int) (*Writer, *Drainer, error) {
	if capacity < 1 || capacity > MaxChannels {
		return nil, nil, fmt.Errorf("store capacity must be between 1 and %d, got %d", MaxChannels, capacity)
	}
	s := &shared{capacity: capacity}
	return &Writer{s: s}, &Drainer{s: s}, nil
}

// Capacity returns the number of channels the store holds.
func (w *Writer) Capacity() int {
	return w.s.capacity
}

// Publish records value for ch and marks ch dirty. Out-of-range channels
// are ignored.
//
// Publish does not allocate or block.
func (w *Writer) Publish(ch int, value uint64) {
	if uint(ch) >= uint(w.s.capacity) {
		return
	}
	w.s.values[ch] = value
	w.s.dirty.Or(1 << uint(ch))
}

// Capacity returns the number of channels the store holds.
func (d *Drainer) Capacity() int {
	return d.s.capacity
}

// Pending reports whether any channel is dirty. It does not exclude the
// recorder: a bit set just after the check is seen on the next call, and
// since the recorder only ever sets bits a true result is never wrong.
func (d *Drainer) Pending() bool {
	return d.s.dirty.Load() != 0
}

// Drain copies the dirty set and every value into dst and clears the dirty
// set. The caller must hold the critical section that excludes the recorder.
//
// The copy is the full value array regardless of how many channels are
// dirty, so the time spent with the recorder excluded is fixed.
func (d *Drainer) Drain(dst *Snapshot) {
	dst.Dirty = d.s.dirty.Swap(0)
	dst.Values = d.s.values
}

// Discard clears ch's dirty bit and zeroes its value. The caller must hold
// the critical section that excludes the recorder.
func (d *Drainer) Discard(ch int) {
	if uint(ch) >= uint(d.s.capacity) {
		return
	}
	d.s.dirty.And(^(uint64(1) << uint(ch)))
	d.s.values[ch] = 0
}

// Snapshot is a main-loop copy of the store taken by [Drainer.Drain].
type Snapshot struct {
	Dirty  uint64
	Values [MaxChannels]uint64
}

// IsDirty reports whether ch was dirty when the snapshot was taken.
func (s *Snapshot) IsDirty(ch int) bool {
	if uint(ch) >= MaxChannels {
		return false
	}
	return s.Dirty&(1<<uint(ch)) != 0
}

// Count returns the number of dirty channels in the snapshot.
func (s *Snapshot) Count() int {
	return bits.OnesCount64(s.Dirty)
}

// Each calls fn for every dirty channel in ascending order with the value
// captured for it. Values of clean channels are never passed to fn.
func (s *Snapshot) Each(fn func(ch int, value uint64)) {
	for set := s.Dirty; set != 0; set &= set - 1 {
		ch := bits.TrailingZeros64(set)
		fn(ch, s.Values[ch])
	}
}
