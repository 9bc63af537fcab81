package monitor

import (
	"sort"
	"sync"
)

const subscriberBuffer = 100

// MemoryMonitor is an in-memory implementation of [Monitor].
type MemoryMonitor struct {
	mu       sync.RWMutex
	readings map[int]Reading

	subMu       sync.RWMutex
	subscribers map[chan Reading]struct{}
}

// NewMemoryMonitor creates an empty [MemoryMonitor].
func NewMemoryMonitor() *MemoryMonitor {
	return &MemoryMonitor{
		readings:    make(map[int]Reading),
		subscribers: make(map[chan Reading]struct{}),
	}
}

// Update stores r under its channel and notifies subscribers.
func (m *MemoryMonitor) Update(r Reading) {
	m.mu.Lock()
	m.readings[r.Channel] = r
	m.mu.Unlock()

	m.notify(r)
}

// GetAll returns a copy of the latest readings, ordered by channel.
func (m *MemoryMonitor) GetAll() []Reading {
	m.mu.RLock()
	out := make([]Reading, 0, len(m.readings))
	for _, r := range m.readings {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Subscribe returns a channel buffered for 100 updates. When the buffer is
// full, further updates are dropped for this subscriber.
func (m *MemoryMonitor) Subscribe() <-chan Reading {
	ch := make(chan Reading, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes the subscription and closes its channel.
func (m *MemoryMonitor) Unsubscribe(ch <-chan Reading) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for sub := range m.subscribers {
		if sub == ch {
			delete(m.subscribers, sub)
			close(sub)
			return
		}
	}
}

// notify sends r to every subscriber without blocking.
func (m *MemoryMonitor) notify(r Reading) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- r:
		default:
			// slow subscriber, drop
		}
	}
}
