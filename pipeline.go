package pwmreceiver

import (
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
)

// Filter decides whether a captured pulse width, in microseconds, is passed
// on to the rest of a channel's pipeline. Returning false drops the reading
// for this poll.
type Filter func(value uint64) bool

// Transform converts a pulse width into the value delivered to a channel's
// [Callback], for example scaling microseconds into another unit.
//
// Transforms should be pure: the same input always yields the same output.
type Transform func(value uint64) uint64

// Callback consumes the transformed value of a channel. It runs on the
// polling loop, never in interrupt context, so it may take as long as it
// needs and perform I/O. A slow callback delays the next poll, not the
// capture of edges.
type Callback func(value uint64)

// AcceptAll is the default [Filter]: it passes every reading.
func AcceptAll(uint64) bool { return true }

// RejectAll is a [Filter] that drops every reading. Detached channels use it.
func RejectAll(uint64) bool { return false }

// Identity is the default [Transform]: it returns its input unchanged.
func Identity(value uint64) uint64 { return value }

// Noop is the default [Callback]: it ignores its input.
func Noop(uint64) {}

// Stage names one step of a [Pipeline].
type Stage string

const (
	// StageFilter is the channel's [Filter].
	StageFilter Stage = "filter"

	// StageTransform is the channel's [Transform].
	StageTransform Stage = "transform"

	// StageCallback is the onChange [Callback] passed to Attach.
	StageCallback Stage = "callback"
)

// Outcome is how a pipeline run ended.
type Outcome string

const (
	// OutcomeDelivered means the callback received the transformed value.
	OutcomeDelivered Outcome = "delivered"

	// OutcomeFiltered means the filter rejected the reading; neither the
	// transform nor the callback ran.
	OutcomeFiltered Outcome = "filtered"

	// OutcomeFailed means a stage panicked. Later stages did not run.
	OutcomeFailed Outcome = "failed"
)

// String returns the outcome name.
func (o Outcome) String() string {
	return string(o)
}

// Result is the outcome of running one channel's pipeline on one reading.
type Result struct {
	// Channel is the channel the reading was captured on.
	Channel int

	// Raw is the captured pulse width in microseconds.
	Raw uint64

	// Value is the transformed value. Only meaningful when Outcome is
	// [OutcomeDelivered].
	Value uint64

	// Outcome reports how far the reading got through the pipeline.
	Outcome Outcome

	// Err is a *[StageError] when Outcome is [OutcomeFailed], nil otherwise.
	Err error
}

// StageError reports a panic recovered from a pipeline stage.
//
// The correlation ID is included in the message and in the log record that
// carries the stack trace, so the two can be matched up.
type StageError struct {
	Stage         Stage
	CorrelationID string
	Panic         any
	Stack         []byte
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s panic (correlation_id: %s): %v", e.Stage, e.CorrelationID, e.Panic)
}

// Pipeline is the filter, transform and callback installed on a channel.
//
// The zero value is inert: nil stages behave like [RejectAll], [Identity]
// and [Noop].
type Pipeline struct {
	filter    Filter
	transform Transform
	callback  Callback
}

// NewPipeline builds a pipeline, substituting [AcceptAll], [Identity] and
// [Noop] for nil stages.
func NewPipeline(filter Filter, transform Transform, callback Callback) Pipeline {
	if filter == nil {
		filter = AcceptAll
	}
	if transform == nil {
		transform = Identity
	}
	if callback == nil {
		callback = Noop
	}
	return Pipeline{filter: filter, transform: transform, callback: callback}
}

// inertPipeline is what a detached or never-attached channel runs.
func inertPipeline() Pipeline {
	return Pipeline{filter: RejectAll, transform: Identity, callback: Noop}
}

// Run passes value through filter, transform and callback in that order.
// A stage that panics is recovered; Run then returns [OutcomeFailed] with a
// *[StageError].
func (p Pipeline) Run(ch int, value uint64) Result {
	res := Result{Channel: ch, Raw: value}

	filter := p.filter
	if filter == nil {
		filter = RejectAll
	}
	transform := p.transform
	if transform == nil {
		transform = Identity
	}
	callback := p.callback
	if callback == nil {
		callback = Noop
	}

	var pass bool
	if err := runStage(StageFilter, func() { pass = filter(value) }); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if !pass {
		res.Outcome = OutcomeFiltered
		return res
	}

	if err := runStage(StageTransform, func() { res.Value = transform(value) }); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	if err := runStage(StageCallback, func() { callback(res.Value) }); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	res.Outcome = OutcomeDelivered
	return res
}

// runStage calls fn, converting a panic into a *StageError.
func runStage(stage Stage, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{
				Stage:         stage,
				CorrelationID: uuid.NewString(),
				Panic:         r,
				Stack:         debug.Stack(),
			}
		}
	}()
	fn()
	return nil
}
