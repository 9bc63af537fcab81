package pwmreceiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/pwmreceiver/edge"
	"github.com/jpalmerr/pwmreceiver/internal/capture"
	"github.com/jpalmerr/pwmreceiver/internal/poller"
	"github.com/jpalmerr/pwmreceiver/internal/store"
)

const defaultCapacity = 16

// ErrChannelOutOfRange is returned by [Receiver.Attach] and
// [Receiver.Detach] for a channel index outside the receiver's capacity.
var ErrChannelOutOfRange = errors.New("channel out of range")

// slot is one row of the registration table.
type slot struct {
	pipeline Pipeline
	active   bool
}

// Receiver measures pulse widths on up to its capacity of channels and
// delivers them through per-channel pipelines.
//
// Edges are captured by a single handler registered with the
// [edge.Controller] for every attached channel. [Receiver.Poll] hands the
// captured widths to the main loop and runs each dirty channel's filter,
// transform and callback.
//
// The typical lifecycle is:
//
//	r, err := pwmreceiver.New(pwmreceiver.WithController(ctrl))
//	if err != nil {
//	    return err
//	}
//	_ = r.Attach(8, func(v uint64) { throttle = v },
//	    pwmreceiver.WithFilter(pwmreceiver.Below(1_000_000)),
//	    pwmreceiver.WithTransform(pwmreceiver.DivideBy(1000)),
//	)
//
//	for {
//	    r.Poll()
//	    // rest of the main loop
//	}
//
// Attach, Detach and Poll are meant to be called from the main loop. They
// are safe to call from different goroutines, but Poll must have a single
// driver: an overlapping Poll returns without doing anything.
type Receiver struct {
	capacity    int
	ctrl        edge.Controller
	logger      *slog.Logger
	resultHooks []func(Result)

	recorder *capture.Recorder
	coord    *poller.Coordinator

	mu    sync.Mutex
	slots [store.MaxChannels]slot

	stats counters
}

// New creates a [Receiver] with the given options.
//
// [WithController] is required. Other options have defaults:
//   - Capacity: 16 channels
//   - Clock: [edge.SystemClock]
//   - Logger: [slog.Default]
//
// Every channel starts inert. Returns an error if no controller is
// configured or if any option is invalid.
func New(opts ...Option) (*Receiver, error) {
	cfg := &rcvConfig{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.controller == nil {
		return nil, errors.New("a controller is required")
	}

	clock := cfg.clock
	if clock == nil {
		clock = edge.SystemClock()
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	w, d, err := store.New(cfg.capacity)
	if err != nil {
		return nil, err
	}

	r := &Receiver{
		capacity:    cfg.capacity,
		ctrl:        cfg.controller,
		logger:      logger,
		resultHooks: cfg.resultHooks,
		recorder:    capture.NewRecorder(clock, w),
		coord:       poller.NewCoordinator(d, cfg.controller),
	}
	for i := range r.slots {
		r.slots[i].pipeline = inertPipeline()
	}
	return r, nil
}

// Attach starts measuring ch and installs its pipeline.
//
// onChange receives each accepted, transformed reading; nil means [Noop].
// The filter and transform default to [AcceptAll] and [Identity] unless set
// with [WithFilter] and [WithTransform].
//
// Attaching an already attached channel replaces its whole pipeline; the
// previous callback is not called again, and a pulse in progress or a
// reading not yet polled is delivered to the new pipeline. Attaching an
// inert channel drops any stale reading, and its first falling edge is
// ignored until a rising edge has been seen, so a line that is already high
// at attach time does not produce a bogus first width.
//
// Returns [ErrChannelOutOfRange] if ch is outside the receiver's capacity,
// or the controller's error if the edge handler cannot be registered; in
// both cases the channel's previous state is kept.
func (r *Receiver) Attach(ch int, onChange Callback, opts ...AttachOption) error {
	if err := r.checkChannel(ch); err != nil {
		return err
	}

	var ac attachConfig
	for _, opt := range opts {
		opt(&ac)
	}
	p := NewPipeline(ac.filter, ac.transform, onChange)

	r.mu.Lock()
	prev := r.slots[ch]
	r.mu.Unlock()

	if !prev.active {
		r.coord.Reset(ch, r.recorder.Arm)
	}

	r.mu.Lock()
	r.slots[ch] = slot{pipeline: p, active: true}
	r.mu.Unlock()

	if err := r.ctrl.Register(ch, r.recorder.HandleEdge); err != nil {
		r.mu.Lock()
		r.slots[ch] = prev
		r.mu.Unlock()
		return fmt.Errorf("attach channel %d: %w", ch, err)
	}

	r.logger.Debug("channel attached", "channel", ch)
	return nil
}

// Detach stops measuring ch and resets its pipeline to the inert defaults:
// a filter that rejects everything, [Identity] and [Noop].
//
// Any reading pending for ch is dropped, so a later Attach never sees a
// width captured before the detach. Detaching an inert channel is a no-op
// apart from the unregister call.
//
// Returns [ErrChannelOutOfRange] if ch is outside the receiver's capacity,
// or the controller's error if the edge handler cannot be unregistered; in
// that case the channel remains attached.
func (r *Receiver) Detach(ch int) error {
	if err := r.checkChannel(ch); err != nil {
		return err
	}

	if err := r.ctrl.Unregister(ch); err != nil {
		return fmt.Errorf("detach channel %d: %w", ch, err)
	}

	r.mu.Lock()
	r.slots[ch] = slot{pipeline: inertPipeline()}
	r.mu.Unlock()

	r.coord.Reset(ch, nil)

	r.logger.Debug("channel detached", "channel", ch)
	return nil
}

// Poll delivers every reading captured since the previous poll. Call it
// once per iteration of the main loop.
//
// If nothing was captured, Poll returns immediately. Otherwise it copies and
// clears the captured widths with edge delivery briefly excluded, then runs
// the pipeline of each channel that has a new reading. If a channel saw
// several pulses since the last poll, only the latest is delivered.
func (r *Receiver) Poll() {
	r.stats.polls.Add(1)

	outcome, _ := r.coord.Poll(r.dispatch)
	switch outcome {
	case poller.Idle:
		r.stats.idle.Add(1)
	case poller.Drained:
		r.stats.drains.Add(1)
	case poller.Busy:
		r.stats.overlapped.Add(1)
		r.logger.Warn("overlapping poll skipped")
	}
}

// Run calls [Receiver.Poll] immediately and then every interval until ctx is
// cancelled. Run blocks; it returns nil once ctx is cancelled, logging the
// cancellation cause.
//
// Returns an error if interval is not positive.
func (r *Receiver) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	r.logger.Info("receiver polling", "interval", interval.String(), "channels", len(r.Channels()))
	err := poller.NewLoop(interval, r.Poll).Run(ctx)
	r.logger.Info("receiver stopped", "reason", err)
	return nil
}

// Capacity returns the number of channels the receiver supports.
func (r *Receiver) Capacity() int {
	return r.capacity
}

// Active reports whether ch is currently attached.
func (r *Receiver) Active(ch int) bool {
	if r.checkChannel(ch) != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[ch].active
}

// Channels returns the attached channels in ascending order.
func (r *Receiver) Channels() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var chs []int
	for ch := 0; ch < r.capacity; ch++ {
		if r.slots[ch].active {
			chs = append(chs, ch)
		}
	}
	return chs
}

// Stats returns running totals of polls and pipeline outcomes.
func (r *Receiver) Stats() Stats {
	return r.stats.snapshot()
}

// dispatch runs ch's pipeline on value. It is called by the coordinator
// outside the critical section.
func (r *Receiver) dispatch(ch int, value uint64) {
	r.mu.Lock()
	p := r.slots[ch].pipeline
	r.mu.Unlock()

	res := p.Run(ch, value)
	r.stats.record(res.Outcome)

	if res.Outcome == OutcomeFailed {
		attrs := []any{"channel", ch, "raw", value, "error", res.Err.Error()}
		var se *StageError
		if errors.As(res.Err, &se) {
			attrs = append(attrs,
				"stage", string(se.Stage),
				"correlation_id", se.CorrelationID,
				"stack", string(se.Stack),
			)
		}
		r.logger.Error("pipeline stage panic", attrs...)
	}

	for _, hook := range r.resultHooks {
		invokeHookSafe(hook, res, r.logger)
	}
}

func (r *Receiver) checkChannel(ch int) error {
	if ch < 0 || ch >= r.capacity {
		return fmt.Errorf("%w: %d (capacity %d)", ErrChannelOutOfRange, ch, r.capacity)
	}
	return nil
}

// invokeHookSafe calls a result hook with panic recovery.
// Panics are logged but do not propagate.
func invokeHookSafe(hook func(Result), res Result, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("result hook panicked",
				"panic", rec,
				"channel", res.Channel,
			)
		}
	}()
	hook(res)
}
