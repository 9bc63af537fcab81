// Package poller drains captured pulse durations on the main loop.
//
// The main components are:
//
//   - [Coordinator]: once per loop iteration, checks the shared store for
//     dirty channels and, if any, copies and clears it inside a critical
//     section before dispatching each dirty channel outside it
//   - [Loop]: a ticker-driven main loop that calls a poll function at a
//     fixed interval until its context is cancelled
//
// Users of the pwmreceiver library should not need to interact with this
// package directly. Polling is driven through the main pwmreceiver package.
package poller
