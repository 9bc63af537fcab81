// Package sim provides an in-process [edge.Controller] and clock for tests
// and for running a receiver on a host without hardware.
//
// Edges are delivered synchronously on the caller's goroutine while holding
// the controller's mask, so [Controller.Disable] blocks delivery exactly the
// way masking interrupts does on a microcontroller.
package sim

import (
	"sync"
	"sync/atomic"

	"github.com/jpalmerr/pwmreceiver/edge"
)

// Controller is a simulated interrupt controller.
//
// The zero value is not usable; create one with [NewController].
type Controller struct {
	mask sync.Mutex

	mu       sync.RWMutex
	handlers map[int]edge.Handler
	levels   map[int]edge.Level

	registered   atomic.Int64
	unregistered atomic.Int64
}

// NewController creates a simulated controller with every line at Low.
func NewController() *Controller {
	return &Controller{
		handlers: make(map[int]edge.Handler),
		levels:   make(map[int]edge.Level),
	}
}

// Disable blocks edge delivery until Restore is called.
func (c *Controller) Disable() edge.State {
	c.mask.Lock()
	return 0
}

// Restore resumes edge delivery.
func (c *Controller) Restore(edge.State) {
	c.mask.Unlock()
}

// Register installs h for both edges on ch.
func (c *Controller) Register(ch int, h edge.Handler) error {
	c.mu.Lock()
	c.handlers[ch] = h
	c.mu.Unlock()
	c.registered.Add(1)
	return nil
}

// Unregister removes the handler for ch, if any.
func (c *Controller) Unregister(ch int) error {
	c.mu.Lock()
	delete(c.handlers, ch)
	c.mu.Unlock()
	c.unregistered.Add(1)
	return nil
}

// Registered reports whether a handler is installed on ch.
func (c *Controller) Registered(ch int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.handlers[ch]
	return ok
}

// Calls returns how many Register and Unregister calls were made.
func (c *Controller) Calls() (register, unregister int64) {
	return c.registered.Load(), c.unregistered.Load()
}

// Level returns the last level driven on ch.
func (c *Controller) Level(ch int) edge.Level {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.levels[ch]
}

// Set drives ch to level. A handler is invoked only when the level actually
// changes, as a pin-change interrupt would.
func (c *Controller) Set(ch int, level edge.Level) {
	c.mu.Lock()
	prev := c.levels[ch]
	c.levels[ch] = level
	c.mu.Unlock()

	if prev == level {
		return
	}
	c.Deliver(ch, level)
}

// Deliver invokes the handler registered on ch with level, regardless of the
// line's previous level. Deliveries to unregistered channels are dropped.
func (c *Controller) Deliver(ch int, level edge.Level) {
	c.mask.Lock()
	defer c.mask.Unlock()

	c.mu.RLock()
	h := c.handlers[ch]
	c.mu.RUnlock()

	if h != nil {
		h(ch, level)
	}
}

// ManualClock is an [edge.Clock] that only moves when told to.
type ManualClock struct {
	now atomic.Uint64
}

// NewManualClock returns a clock reading start microseconds.
func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

// Micros returns the current reading.
func (c *ManualClock) Micros() uint64 {
	return c.now.Load()
}

// Set moves the clock to us.
func (c *ManualClock) Set(us uint64) {
	c.now.Store(us)
}

// Advance moves the clock forward by us and returns the new reading.
func (c *ManualClock) Advance(us uint64) uint64 {
	return c.now.Add(us)
}

// Pulse drives one complete high pulse on ch: the clock is set to rise, the
// line goes High, the clock is set to fall, and the line goes Low.
func Pulse(c *Controller, clock *ManualClock, ch int, rise, fall uint64) {
	clock.Set(rise)
	c.Set(ch, edge.High)
	clock.Set(fall)
	c.Set(ch, edge.Low)
}
