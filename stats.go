package pwmreceiver

import "sync/atomic"

// Stats are running totals for a [Receiver], taken with [Receiver.Stats].
type Stats struct {
	// Polls is the number of Poll calls.
	Polls uint64

	// Idle is the number of polls that found nothing dirty and returned
	// without entering the critical section.
	Idle uint64

	// Drains is the number of polls that copied and cleared the store.
	Drains uint64

	// Overlapped is the number of polls skipped because another poll was
	// still running.
	Overlapped uint64

	// Delivered, Filtered and Failed count pipeline runs by [Outcome].
	Delivered uint64
	Filtered  uint64
	Failed    uint64
}

// Readings returns the number of readings dispatched to pipelines.
func (s Stats) Readings() uint64 {
	return s.Delivered + s.Filtered + s.Failed
}

type counters struct {
	polls      atomic.Uint64
	idle       atomic.Uint64
	drains     atomic.Uint64
	overlapped atomic.Uint64
	delivered  atomic.Uint64
	filtered   atomic.Uint64
	failed     atomic.Uint64
}

func (c *counters) record(o Outcome) {
	switch o {
	case OutcomeDelivered:
		c.delivered.Add(1)
	case OutcomeFiltered:
		c.filtered.Add(1)
	case OutcomeFailed:
		c.failed.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Polls:      c.polls.Load(),
		Idle:       c.idle.Load(),
		Drains:     c.drains.Load(),
		Overlapped: c.overlapped.Load(),
		Delivered:  c.delivered.Load(),
		Filtered:   c.filtered.Load(),
		Failed:     c.failed.Load(),
	}
}
