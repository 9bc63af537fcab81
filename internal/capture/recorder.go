// Package capture turns edge interrupts into pulse durations.
//
// A [Recorder] is the single handler registered for every attached channel.
// It runs in interrupt context: every method it exposes to the edge
// controller is O(1), allocation-free and lock-free. Its rising-edge
// timestamps are private to it and never read by the main loop.
package capture

import (
	"github.com/jpalmerr/pwmreceiver/edge"
	"github.com/jpalmerr/pwmreceiver/internal/store"
)

// Recorder measures the high time of pulses on each channel and publishes
// the duration in microseconds when the falling edge arrives.
type Recorder struct {
	clock  edge.Clock
	writer *store.Writer

	waveStart [store.MaxChannels]uint64

	// armed has bit ch set once a rising edge has been seen on ch since the
	// last Arm. Falling edges on an unarmed channel are discarded.
	armed uint64
}

// NewRecorder creates a recorder publishing into w, timestamped by clock.
func NewRecorder(clock edge.Clock, w *store.Writer) *Recorder {
	return &Recorder{clock: clock, writer: w}
}

// HandleEdge is the [edge.Handler] for every attached channel.
//
// A rising edge records the start time. A falling edge publishes
// now - start, provided a rising edge was seen since the channel was armed;
// otherwise the line was already high when it was attached and the partial
// pulse is dropped.
func (r *Recorder) HandleEdge(ch int, level edge.Level) {
	if uint(ch) >= uint(r.writer.Capacity()) {
		return
	}
	now := r.clock.Micros()
	bit := uint64(1) << uint(ch)

	if level == edge.High {
		r.waveStart[ch] = now
		r.armed |= bit
		return
	}

	if r.armed&bit == 0 {
		return
	}
	r.writer.Publish(ch, now-r.waveStart[ch])
}

// Arm resets ch so that its next reading starts from a rising edge, and
// seeds its start time with the current clock.
//
// Arm writes recorder-owned state from the main loop, so it must be called
// with edge delivery excluded or before the channel's handler is registered.
func (r *Recorder) Arm(ch int) {
	if uint(ch) >= uint(r.writer.Capacity()) {
		return
	}
	r.waveStart[ch] = r.clock.Micros()
	r.armed &^= uint64(1) << uint(ch)
}
