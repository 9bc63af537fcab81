package capture

import (
	"testing"

	"github.com/jpalmerr/pwmreceiver/edge"
	"github.com/jpalmerr/pwmreceiver/edge/sim"
	"github.com/jpalmerr/pwmreceiver/internal/store"
)

func newTestRecorder(t *testing.T, capacity int) (*Recorder, *store.Drainer, *sim.ManualClock) {
	t.Helper()
	w, d, err := store.New(capacity)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	clock := sim.NewManualClock(0)
	return NewRecorder(clock, w), d, clock
}

func drain(d *store.Drainer) store.Snapshot {
	var snap store.Snapshot
	d.Drain(&snap)
	return snap
}

func TestRecorder_RisingThenFalling(t *testing.T) {
	r, d, clock := newTestRecorder(t, 16)

	clock.Set(1000)
	r.HandleEdge(8, edge.High)

	if d.Pending() {
		t.Fatal("rising edge should not mark the channel dirty")
	}

	clock.Set(500500)
	r.HandleEdge(8, edge.Low)

	snap := drain(d)
	if !snap.IsDirty(8) {
		t.Fatal("falling edge should mark the channel dirty")
	}
	if snap.Values[8] != 499500 {
		t.Errorf("Values[8] = %d, want 499500", snap.Values[8])
	}
}

func TestRecorder_FallingWithoutRisingDiscarded(t *testing.T) {
	r, d, clock := newTestRecorder(t, 16)

	r.Arm(3)
	clock.Set(7000)
	r.HandleEdge(3, edge.Low)

	if d.Pending() {
		t.Error("falling edge before any rising edge should be discarded")
	}

	// the next full pulse is measured normally
	clock.Set(8000)
	r.HandleEdge(3, edge.High)
	clock.Set(9500)
	r.HandleEdge(3, edge.Low)

	snap := drain(d)
	if snap.Values[3] != 1500 {
		t.Errorf("Values[3] = %d, want 1500", snap.Values[3])
	}
}

func TestRecorder_ArmDropsHalfMeasuredPulse(t *testing.T) {
	r, d, clock := newTestRecorder(t, 16)

	clock.Set(100)
	r.HandleEdge(2, edge.High)

	// re-attach while the line is high
	clock.Set(200)
	r.Arm(2)

	clock.Set(300)
	r.HandleEdge(2, edge.Low)

	if d.Pending() {
		t.Error("falling edge after Arm should be discarded")
	}
}

func TestRecorder_SecondPulseOverwritesFirst(t *testing.T) {
	r, d, clock := newTestRecorder(t, 16)

	for _, p := range []struct{ rise, fall uint64 }{{0, 1000}, {5000, 7200}} {
		clock.Set(p.rise)
		r.HandleEdge(0, edge.High)
		clock.Set(p.fall)
		r.HandleEdge(0, edge.Low)
	}

	snap := drain(d)
	if snap.Values[0] != 2200 {
		t.Errorf("Values[0] = %d, want 2200 (latest pulse)", snap.Values[0])
	}
}

func TestRecorder_ChannelsIndependent(t *testing.T) {
	r, d, clock := newTestRecorder(t, 16)

	clock.Set(0)
	r.HandleEdge(1, edge.High)
	clock.Set(100)
	r.HandleEdge(2, edge.High)
	clock.Set(1100)
	r.HandleEdge(1, edge.Low)
	clock.Set(2100)
	r.HandleEdge(2, edge.Low)

	snap := drain(d)
	if snap.Values[1] != 1100 {
		t.Errorf("Values[1] = %d, want 1100", snap.Values[1])
	}
	if snap.Values[2] != 2000 {
		t.Errorf("Values[2] = %d, want 2000", snap.Values[2])
	}
}

func TestRecorder_ClockWraparound(t *testing.T) {
	r, d, clock := newTestRecorder(t, 4)

	clock.Set(^uint64(0) - 499) // 500µs before wrap
	r.HandleEdge(0, edge.High)
	clock.Set(1000) // wrapped
	r.HandleEdge(0, edge.Low)

	snap := drain(d)
	if snap.Values[0] != 1500 {
		t.Errorf("Values[0] = %d, want 1500 across wraparound", snap.Values[0])
	}
}

func TestRecorder_OutOfRangeIgnored(t *testing.T) {
	r, d, _ := newTestRecorder(t, 4)

	r.HandleEdge(4, edge.High)
	r.HandleEdge(4, edge.Low)
	r.HandleEdge(-1, edge.High)
	r.Arm(40)

	if d.Pending() {
		t.Error("edges on out-of-range channels should be ignored")
	}
}

func TestRecorder_DoesNotAllocate(t *testing.T) {
	r, _, clock := newTestRecorder(t, 16)

	allocs := testing.AllocsPerRun(100, func() {
		clock.Advance(10)
		r.HandleEdge(5, edge.High)
		clock.Advance(1500)
		r.HandleEdge(5, edge.Low)
	})
	if allocs != 0 {
		t.Errorf("HandleEdge allocated %v times per run, want 0", allocs)
	}
}
