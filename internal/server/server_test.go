package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/pwmreceiver/internal/monitor"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// syncRecorder is a ResponseRecorder safe to read while a handler writes.
type syncRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{rec: httptest.NewRecorder()}
}

func (s *syncRecorder) Header() http.Header { return s.rec.Header() }

func (s *syncRecorder) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Write(b)
}

func (s *syncRecorder) WriteHeader(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.WriteHeader(code)
}

func (s *syncRecorder) Flush() {}

func (s *syncRecorder) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Body.String()
}

func TestHandleReadings(t *testing.T) {
	mon := monitor.NewMemoryMonitor()
	mon.Update(monitor.Reading{Channel: 8, Name: "throttle", Raw: 1500, Value: 500, Outcome: "delivered"})
	mon.Update(monitor.Reading{Channel: 2, Raw: 3000, Outcome: "filtered"})

	srv := NewServer(mon, 0, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got []monitor.Reading
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(got) != 2 || got[0].Channel != 2 || got[1].Name != "throttle" {
		t.Errorf("readings = %+v, want channels 2 then 8", got)
	}
}

func TestHandleReadings_MethodNotAllowed(t *testing.T) {
	srv := NewServer(monitor.NewMemoryMonitor(), 0, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/readings", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleSSE_SnapshotThenUpdates(t *testing.T) {
	mon := monitor.NewMemoryMonitor()
	mon.Update(monitor.Reading{Channel: 1, Name: "aileron"})

	srv := NewServer(mon, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !strings.Contains(rec.body(), "aileron") {
		select {
		case <-deadline:
			t.Fatalf("snapshot not streamed, body: %s", rec.body())
		case <-time.After(5 * time.Millisecond):
		}
	}

	mon.Update(monitor.Reading{Channel: 2, Name: "elevator"})
	for !strings.Contains(rec.body(), "elevator") {
		select {
		case <-deadline:
			t.Fatalf("update not streamed, body: %s", rec.body())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after context cancel")
	}

	if !strings.HasPrefix(rec.body(), "data: ") {
		t.Errorf("body should be SSE framed, got: %s", rec.body())
	}
}

func TestHandleSSE_UnencodableReadingSkipped(t *testing.T) {
	mon := monitor.NewMemoryMonitor()
	// time.Time refuses to marshal years past 9999
	mon.Update(monitor.Reading{Channel: 1, Name: "broken", At: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)})
	mon.Update(monitor.Reading{Channel: 2, Name: "rudder"})

	var logs bytes.Buffer
	srv := NewServer(mon, 0, slog.New(slog.NewTextHandler(&logs, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !strings.Contains(rec.body(), "rudder") {
		select {
		case <-deadline:
			t.Fatalf("reading after the broken one not streamed, body: %s", rec.body())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if strings.Contains(rec.body(), "broken") {
		t.Errorf("unencodable reading written to stream: %s", rec.body())
	}
	if out := logs.String(); !strings.Contains(out, "failed to encode reading") || !strings.Contains(out, "channel=1") {
		t.Errorf("log output = %q, want encode warning for channel 1", out)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	mon := monitor.NewMemoryMonitor()
	mon.Update(monitor.Reading{Channel: 0, Raw: 1000})

	srv := NewServer(mon, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	port := srv.Addr().(*net.TCPAddr).Port
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/readings", port))
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
