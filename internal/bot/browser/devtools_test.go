package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestProbeRetriesUntilReady(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/json/version", func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Browser":"HeadlessChrome/124.0","User-Agent":"ua","webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/abc"}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	probe := Probe{Backoff: time.Millisecond}
	info, err := probe.DiscoverURL(context.Background(), srv.URL+"/json/version")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if info.WebSocketURL != "ws://127.0.0.1:9222/devtools/browser/abc" {
		t.Fatalf("unexpected ws url %q", info.WebSocketURL)
	}
	if info.WebSocketPath != "/devtools/browser/abc" {
		t.Fatalf("unexpected ws path %q", info.WebSocketPath)
	}
	if info.BrowserVersion != "HeadlessChrome/124.0" {
		t.Fatalf("unexpected version %q", info.BrowserVersion)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestProbeGivesUpAfterAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	probe := Probe{Attempts: 4, Backoff: time.Millisecond}
	if _, err := probe.DiscoverURL(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error when no debugger url is advertised")
	}
	if hits.Load() != 4 {
		t.Fatalf("expected 4 attempts, got %d", hits.Load())
	}
}

func TestProbeStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	probe := Probe{Attempts: 1000, Backoff: 5 * time.Millisecond}
	start := time.Now()
	if _, err := probe.DiscoverURL(ctx, srv.URL); err == nil {
		t.Fatalf("expected error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("probe ignored context cancellation")
	}
}
