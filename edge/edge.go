package edge

import "time"

// Level is the logic level of an input line after a transition.
type Level bool

const (
	// Low is logic 0. A transition to Low is a falling edge.
	Low Level = false

	// High is logic 1. A transition to High is a rising edge.
	High Level = true
)

// String returns "high" or "low".
func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Handler is called once per transition on a registered channel with the
// channel index and the line's new level.
//
// Handlers run in interrupt context on hardware: they must not block,
// allocate, or take locks.
type Handler func(ch int, level Level)

// State is the opaque value returned by [CriticalSection.Disable] and handed
// back to [CriticalSection.Restore].
type State uintptr

// CriticalSection excludes edge delivery for the span between Disable and
// Restore. On hardware this masks interrupts; in simulation it blocks the
// delivering goroutine.
//
// Sections must be kept short: only copy and clear shared state inside one.
type CriticalSection interface {
	Disable() State
	Restore(State)
}

// Controller is the interrupt subsystem consumed by a receiver.
//
// Register installs h for both edges on ch, replacing any previous handler.
// Unregister stops delivery for ch; unregistering an unknown channel is not
// an error.
type Controller interface {
	CriticalSection
	Register(ch int, h Handler) error
	Unregister(ch int) error
}

// Clock is a monotonic microsecond counter. Values are only meaningful as
// differences; uint64 subtraction keeps wraparound consistent.
type Clock interface {
	Micros() uint64
}

// SystemClock returns a [Clock] backed by the Go monotonic clock, counting
// from the moment it was created.
func SystemClock() Clock {
	return systemClock{start: time.Now()}
}

type systemClock struct {
	start time.Time
}

func (c systemClock) Micros() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}
