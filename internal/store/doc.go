// Package store holds the per-channel state shared between the edge
// recorder and the polling coordinator.
//
// The store is split into two views over the same memory:
//
//   - [Writer]: used only by the recorder, in interrupt context. It can
//     publish a value for a channel and nothing else.
//   - [Drainer]: used only by the coordinator, on the main loop. It can test
//     for pending values and copy-and-clear the store, but cannot publish.
//
// Keeping the two capabilities on different types means the recorder cannot
// drain and the main loop cannot publish without the compiler noticing.
//
// Only the dirty set is accessed atomically. Values are plain memory: the
// recorder writes a value before setting its dirty bit, and the drainer
// reads values only while edge delivery is excluded, so a set bit always
// comes with the value written alongside it.
package store
