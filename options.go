package pwmreceiver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/pwmreceiver/edge"
	"github.com/jpalmerr/pwmreceiver/internal/store"
)

// rcvConfig holds mutable state during Receiver construction.
type rcvConfig struct {
	capacity    int
	controller  edge.Controller
	clock       edge.Clock
	logger      *slog.Logger
	resultHooks []func(Result)
}

// Option is a function that configures a [Receiver] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithController], [WithCapacity], [WithClock],
// [WithLogger], [WithResultHook].
type Option func(*rcvConfig) error

// WithController sets the interrupt subsystem that delivers edges to the
// receiver. It is required.
//
// Example:
//
//	ctrl := sim.NewController()
//	r, err := pwmreceiver.New(pwmreceiver.WithController(ctrl))
//
// Returns an error if the controller is nil.
func WithController(c edge.Controller) Option {
	return func(cfg *rcvConfig) error {
		if c == nil {
			return errors.New("controller cannot be nil")
		}
		cfg.controller = c
		return nil
	}
}

// WithCapacity sets the number of channels the receiver can measure.
// Channel indices run from 0 to n-1. Defaults to 16.
//
// Returns an error if n is not between 1 and 64.
func WithCapacity(n int) Option {
	return func(cfg *rcvConfig) error {
		if n < 1 || n > store.MaxChannels {
			return fmt.Errorf("capacity must be between 1 and %d, got %d", store.MaxChannels, n)
		}
		cfg.capacity = n
		return nil
	}
}

// WithClock sets the microsecond clock used to timestamp edges. Defaults to
// [edge.SystemClock].
//
// Returns an error if the clock is nil.
func WithClock(c edge.Clock) Option {
	return func(cfg *rcvConfig) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Receiver.
//
// Nothing is logged from the edge handler; the logger is only used on the
// polling side. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *rcvConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithResultHook registers a function called with the [Result] of every
// pipeline run, after the channel's own callback.
//
// Hooks see filtered and failed readings as well as delivered ones, which
// makes them the place to count rejects or alert on stage panics. Multiple
// hooks run in registration order. Panics in hooks are recovered and logged.
//
// Nil hooks are silently ignored.
func WithResultHook(hook func(Result)) Option {
	return func(cfg *rcvConfig) error {
		if hook == nil {
			return nil
		}
		cfg.resultHooks = append(cfg.resultHooks, hook)
		return nil
	}
}

// attachConfig holds the optional stages passed to Attach.
type attachConfig struct {
	filter    Filter
	transform Transform
}

// AttachOption configures the optional stages of a channel's pipeline in
// [Receiver.Attach]. Stages that are not given default to [AcceptAll] and
// [Identity].
type AttachOption func(*attachConfig)

// WithFilter sets the channel's [Filter]. A nil filter means [AcceptAll].
func WithFilter(f Filter) AttachOption {
	return func(cfg *attachConfig) {
		cfg.filter = f
	}
}

// WithTransform sets the channel's [Transform]. A nil transform means
// [Identity].
func WithTransform(t Transform) AttachOption {
	return func(cfg *attachConfig) {
		cfg.transform = t
	}
}
