// Package monitor keeps the latest reading of every channel for display and
// fans updates out to subscribers.
//
// This package is internal to pwmreceiver and backs the simulate command's
// HTTP endpoints. It is fed from a receiver result hook on the polling loop.
//
// The main components are:
//
//   - [Monitor]: interface defining storage and subscription operations
//   - [MemoryMonitor]: in-memory implementation of Monitor with pub/sub
//   - [Reading]: the display representation of one channel's latest result
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the polling loop).
package monitor
