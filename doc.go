// Package pwmreceiver measures the width of digital pulses on several input
// lines without blocking the main loop.
//
// Edges are timestamped the instant they occur, by a handler running in
// interrupt context. The main loop calls [Receiver.Poll] once per iteration;
// Poll hands over whatever was captured and runs each channel's pipeline:
//
//  1. the [Filter] decides whether the reading is kept
//  2. the [Transform] converts it (for example, microseconds to milliseconds)
//  3. the [Callback] consumes the converted value
//
// # Quick Start
//
//	r, err := pwmreceiver.New(pwmreceiver.WithController(ctrl))
//	if err != nil {
//	    return err
//	}
//
//	err = r.Attach(8, func(v uint64) { fmt.Println("ms:", v) },
//	    pwmreceiver.WithFilter(pwmreceiver.Below(1_000_000)),
//	    pwmreceiver.WithTransform(pwmreceiver.DivideBy(1000)),
//	)
//
//	for {
//	    r.Poll()
//	    // other main loop work
//	}
//
// # Delivery Semantics
//
// Each channel holds only its most recent width. If the main loop polls
// slower than pulses arrive, intermediate pulses are lost and the next poll
// delivers the latest one. A pulse that starts but never ends is simply
// never delivered. Neither case is reported as an error.
//
// The first falling edge after [Receiver.Attach] is ignored unless a rising
// edge preceded it, so attaching to a line that is already high does not
// yield a partial width. [Receiver.Detach] drops any width still pending.
//
// # Filters and Transforms
//
// Several built-ins are provided, and they compose:
//
//   - Filters: [AcceptAll], [RejectAll], [Below], [Above], [Between],
//     [AllOf], [AnyOf], [Not]
//   - Transforms: [Identity], [DivideBy], [Offset], [Clamp], [MapRange],
//     [Chain]
//
// A panicking stage is recovered. The reading is reported as
// [OutcomeFailed] to hooks registered with [WithResultHook], and the panic
// is logged with a correlation ID.
//
// # Architecture
//
// The hardware is reached only through the interfaces in package edge.
// Internal packages:
//
//   - internal/store: per-channel widths and the dirty set shared between
//     interrupt context and the main loop
//   - internal/capture: the edge handler that turns edges into widths
//   - internal/poller: the once-per-iteration drain of the store
//
// The internal packages are not part of the public API and may change
// without notice.
package pwmreceiver
