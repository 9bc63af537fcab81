package poller

import (
	"sync/atomic"

	"github.com/jpalmerr/pwmreceiver/edge"
	"github.com/jpalmerr/pwmreceiver/internal/store"
)

// Dispatch receives one drained channel and its captured value.
type Dispatch func(ch int, value uint64)

// Outcome describes what a single [Coordinator.Poll] call did.
type Outcome int

const (
	// Idle means no channel was dirty; the store was not touched.
	Idle Outcome = iota

	// Drained means the store was copied and cleared and dirty channels
	// were dispatched.
	Drained

	// Busy means another Poll was already running and this call did nothing.
	Busy
)

// Coordinator is the single drainer of a shared store.
type Coordinator struct {
	drainer *store.Drainer
	cs      edge.CriticalSection
	scratch store.Snapshot
	polling atomic.Bool
}

// NewCoordinator creates a coordinator draining d, using cs to exclude the
// recorder while copying.
func NewCoordinator(d *store.Drainer, cs edge.CriticalSection) *Coordinator {
	return &Coordinator{drainer: d, cs: cs}
}

// Poll drains the store if any channel is dirty and calls dispatch for each
// dirty channel in ascending order. It returns the outcome and the number of
// channels dispatched.
//
// Only the copy-and-clear runs inside the critical section; dispatch always
// runs with edge delivery enabled. Poll must be driven by one loop: an
// overlapping call returns [Busy] without touching the store.
func (c *Coordinator) Poll(dispatch Dispatch) (Outcome, int) {
	if !c.drainer.Pending() {
		return Idle, 0
	}
	if !c.polling.CompareAndSwap(false, true) {
		return Busy, 0
	}
	defer c.polling.Store(false)

	state := c.cs.Disable()
	c.drainer.Drain(&c.scratch)
	c.cs.Restore(state)

	c.scratch.Each(dispatch)
	return Drained, c.scratch.Count()
}

// Reset clears ch's pending value and, if arm is non-nil, calls arm(ch),
// both inside one critical section. A reading captured before ch was
// attached or detached is therefore never dispatched.
func (c *Coordinator) Reset(ch int, arm func(ch int)) {
	state := c.cs.Disable()
	c.drainer.Discard(ch)
	if arm != nil {
		arm(ch)
	}
	c.cs.Restore(state)
}
