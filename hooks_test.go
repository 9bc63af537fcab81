package pwmreceiver

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jpalmerr/pwmreceiver/edge/sim"
)

func TestWithResultHook_SeesEveryOutcome(t *testing.T) {
	var results []Result
	r, ctrl, clock := newTestReceiver(t, WithResultHook(func(res Result) {
		results = append(results, res)
	}))

	_ = r.Attach(0, nil, WithFilter(Below(2000)))
	_ = r.Attach(1, nil, WithTransform(func(uint64) uint64 { panic("boom") }))

	sim.Pulse(ctrl, clock, 0, 0, 1000)
	r.Poll()
	sim.Pulse(ctrl, clock, 0, 10000, 13000)
	sim.Pulse(ctrl, clock, 1, 20000, 21000)
	r.Poll()

	if len(results) != 3 {
		t.Fatalf("hook called %d times, want 3", len(results))
	}

	want := []struct {
		ch      int
		outcome Outcome
	}{
		{0, OutcomeDelivered},
		{0, OutcomeFiltered},
		{1, OutcomeFailed},
	}
	for i, w := range want {
		if results[i].Channel != w.ch || results[i].Outcome != w.outcome {
			t.Errorf("results[%d] = (ch %d, %s), want (ch %d, %s)",
				i, results[i].Channel, results[i].Outcome, w.ch, w.outcome)
		}
	}
	if results[1].Raw != 3000 {
		t.Errorf("results[1].Raw = %d, want 3000", results[1].Raw)
	}
}

func TestWithResultHook_MultipleInOrder(t *testing.T) {
	var order []int
	r, ctrl, clock := newTestReceiver(t,
		WithResultHook(func(Result) { order = append(order, 1) }),
		WithResultHook(func(Result) { order = append(order, 2) }),
	)

	_ = r.Attach(0, func(uint64) { order = append(order, 0) })
	sim.Pulse(ctrl, clock, 0, 0, 1000)
	r.Poll()

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("call order = %v, want [0 1 2]", order)
	}
}

func TestWithResultHook_PanicRecovered(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	secondCalled := false
	r, ctrl, clock := newTestReceiver(t,
		WithLogger(logger),
		WithResultHook(func(Result) { panic("hook failure") }),
		WithResultHook(func(Result) { secondCalled = true }),
	)

	_ = r.Attach(0, nil)
	sim.Pulse(ctrl, clock, 0, 0, 1000)
	r.Poll()

	if !secondCalled {
		t.Error("second hook should run after the first panicked")
	}
	if !strings.Contains(buf.String(), "result hook panicked") {
		t.Errorf("log output = %q, want hook panic record", buf.String())
	}
}

func TestReceiver_StagePanicLoggedWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var failed Result
	r, ctrl, clock := newTestReceiver(t,
		WithLogger(logger),
		WithResultHook(func(res Result) { failed = res }),
	)

	_ = r.Attach(3, func(uint64) { panic("callback failure") })
	sim.Pulse(ctrl, clock, 3, 0, 1000)
	r.Poll()

	var se *StageError
	if !errors.As(failed.Err, &se) {
		t.Fatalf("Result.Err = %v, want *StageError", failed.Err)
	}
	if se.Stage != StageCallback {
		t.Errorf("StageError.Stage = %s, want %s", se.Stage, StageCallback)
	}

	out := buf.String()
	if !strings.Contains(out, "pipeline stage panic") {
		t.Errorf("log output missing panic record: %s", out)
	}
	if !strings.Contains(out, se.CorrelationID) {
		t.Errorf("log output missing correlation id %q: %s", se.CorrelationID, out)
	}
	if got := r.Stats().Failed; got != 1 {
		t.Errorf("Stats().Failed = %d, want 1", got)
	}

	// the receiver keeps working after a panic
	sim.Pulse(ctrl, clock, 3, 5000, 6000)
	r.Poll()
	if got := r.Stats().Failed; got != 2 {
		t.Errorf("Stats().Failed = %d, want 2", got)
	}
}
