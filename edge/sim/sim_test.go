package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/pwmreceiver/edge"
)

type edgeLog struct {
	mu    sync.Mutex
	edges []edge.Level
}

func (l *edgeLog) handle(_ int, level edge.Level) {
	l.mu.Lock()
	l.edges = append(l.edges, level)
	l.mu.Unlock()
}

func (l *edgeLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.edges)
}

func TestController_SetDeliversOnlyTransitions(t *testing.T) {
	c := NewController()
	var log edgeLog
	_ = c.Register(0, log.handle)

	c.Set(0, edge.Low) // already low
	c.Set(0, edge.High)
	c.Set(0, edge.High) // no change
	c.Set(0, edge.Low)

	if log.len() != 2 {
		t.Fatalf("handler called %d times, want 2", log.len())
	}
	if log.edges[0] != edge.High || log.edges[1] != edge.Low {
		t.Errorf("edges = %v, want [high low]", log.edges)
	}
	if c.Level(0) != edge.Low {
		t.Errorf("Level(0) = %s, want low", c.Level(0))
	}
}

func TestController_UnregisteredDropsEdges(t *testing.T) {
	c := NewController()
	var log edgeLog
	_ = c.Register(1, log.handle)
	_ = c.Unregister(1)

	c.Set(1, edge.High)

	if log.len() != 0 {
		t.Errorf("handler called %d times after Unregister, want 0", log.len())
	}
	if c.Registered(1) {
		t.Error("Registered(1) = true after Unregister")
	}
	if c.Level(1) != edge.High {
		t.Error("line level should be tracked even without a handler")
	}
	reg, unreg := c.Calls()
	if reg != 1 || unreg != 1 {
		t.Errorf("Calls() = (%d, %d), want (1, 1)", reg, unreg)
	}
}

func TestController_DisableBlocksDelivery(t *testing.T) {
	c := NewController()
	var log edgeLog
	_ = c.Register(0, log.handle)

	state := c.Disable()

	delivered := make(chan struct{})
	go func() {
		c.Deliver(0, edge.High)
		close(delivered)
	}()

	select {
	case <-delivered:
		t.Fatal("edge delivered while disabled")
	case <-time.After(20 * time.Millisecond):
	}

	c.Restore(state)

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("edge not delivered after Restore")
	}
	if log.len() != 1 {
		t.Errorf("handler called %d times, want 1", log.len())
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(100)
	if c.Micros() != 100 {
		t.Errorf("Micros() = %d, want 100", c.Micros())
	}
	if got := c.Advance(50); got != 150 {
		t.Errorf("Advance(50) = %d, want 150", got)
	}
	c.Set(7)
	if c.Micros() != 7 {
		t.Errorf("Micros() = %d, want 7", c.Micros())
	}
}

func TestPulse(t *testing.T) {
	c := NewController()
	clock := NewManualClock(0)

	var times []uint64
	_ = c.Register(2, func(int, edge.Level) { times = append(times, clock.Micros()) })

	Pulse(c, clock, 2, 1000, 2500)

	if len(times) != 2 || times[0] != 1000 || times[1] != 2500 {
		t.Errorf("edge times = %v, want [1000 2500]", times)
	}
}

func TestGenerator_PlaysTrains(t *testing.T) {
	c := NewController()
	var log edgeLog
	_ = c.Register(0, log.handle)

	g := NewGenerator(c,
		Train{Channel: 0, Period: 5 * time.Millisecond, Widths: []time.Duration{time.Millisecond}},
		Train{Channel: 1}, // skipped: no period
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	g.Run(ctx)

	if log.len() < 4 {
		t.Errorf("saw %d edges, want at least 4", log.len())
	}
	if c.Level(0) != edge.Low {
		t.Error("line should be left low after Run returns")
	}
}
