// Package edge defines the hardware collaborators a receiver depends on.
//
// A receiver never touches pins or timers directly. It consumes:
//
//   - [Controller]: registers and unregisters a per-channel edge handler and
//     provides the [CriticalSection] used to exclude that handler
//   - [Clock]: a monotonic microsecond counter
//
// Implementations exist for the TinyGo machine package (package machinepin,
// built only under the tinygo build tag) and for hosted simulation and tests
// (package sim).
package edge
