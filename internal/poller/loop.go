package poller

import (
	"context"
	"time"
)

// Loop calls a poll function at a fixed interval.
//
// Loop is the hosted stand-in for a firmware main loop: poll runs on a
// single goroutine, so it is the only drainer for as long as Run executes.
type Loop struct {
	interval time.Duration
	poll     func()
}

// NewLoop creates a loop calling poll every interval.
func NewLoop(interval time.Duration, poll func()) *Loop {
	return &Loop{interval: interval, poll: poll}
}

// Run polls once immediately, then once per tick until ctx is cancelled.
// Run blocks and returns ctx.Err() when it stops.
func (l *Loop) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.poll()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.poll()
		}
	}
}
