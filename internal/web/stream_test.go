package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/abconsole/internal/mockapi"
	"github.com/TimurManjosov/abconsole/internal/store"
	"github.com/TimurManjosov/abconsole/internal/testutil"
)

// readMetricsEvents parses "metrics" events from an SSE body.
func readMetricsEvents(t *testing.T, scanner *bufio.Scanner) <-chan metricsEvent {
	t.Helper()
	events := make(chan metricsEvent, 10)

	go func() {
		defer close(events)
		var currentEvent, currentData string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				currentData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "" && currentEvent == "metrics":
				var ev metricsEvent
				if err := json.Unmarshal([]byte(currentData), &ev); err != nil {
					t.Logf("Warning: failed to parse SSE data as JSON: %v", err)
				}
				events <- ev
				currentEvent, currentData = "", ""
			}
		}
	}()

	return events
}

func startStream(t *testing.T, interval time.Duration) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	backend, st := testutil.NewBackend(t, mockapi.Options{Logger: zerolog.Nop()})
	c := testutil.NewClient(t, backend.URL, "")
	srv, err := NewServer(c, Options{Logger: zerolog.Nop(), StreamInterval: interval})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func openStream(t *testing.T, ctx context.Context, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStream_Headers(t *testing.T) {
	ts, st := startStream(t, time.Hour)
	exp := testutil.SeedExperiment(t, st, "Stream", "a", "b")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp := openStream(t, ctx, ts.URL+"/experiments/"+exp.ID+"/stream")

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected Content-Type 'text/event-stream', got %s", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Expected Cache-Control 'no-cache', got %s", cc)
	}
}

func TestStream_SendsMetrics(t *testing.T) {
	ts, st := startStream(t, time.Hour)
	exp := testutil.SeedExperiment(t, st, "Stream", "control", "bold")
	testutil.SeedEvents(t, st, exp.ID, "control", store.EventView, 100)
	testutil.SeedEvents(t, st, exp.ID, "control", store.EventClick, 20)
	testutil.SeedEvents(t, st, exp.ID, "control", store.EventConversion, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp := openStream(t, ctx, ts.URL+"/experiments/"+exp.ID+"/stream")
	events := readMetricsEvents(t, bufio.NewScanner(resp.Body))

	for ev := range events {
		if ev.Loading {
			continue
		}
		if ev.Error != "" {
			t.Fatalf("unexpected error event: %s", ev.Error)
		}
		if ev.Stats == nil || len(ev.Stats.Variants) == 0 {
			t.Fatal("expected stats in event")
		}
		if got := ev.Stats.Variants[0].ConversionRate; got != 0.05 {
			t.Errorf("ConversionRate = %v, want 0.05", got)
		}
		return
	}
	t.Fatal("stream ended without a completed metrics event")
}

func TestStream_RefreshesOnInterval(t *testing.T) {
	ts, st := startStream(t, 50*time.Millisecond)
	exp := testutil.SeedExperiment(t, st, "Stream", "control", "bold")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp := openStream(t, ctx, ts.URL+"/experiments/"+exp.ID+"/stream")
	events := readMetricsEvents(t, bufio.NewScanner(resp.Body))

	// a view tracked after the first load shows up on a later refresh
	first := true
	for ev := range events {
		if ev.Loading || ev.Stats == nil {
			continue
		}
		if first {
			first = false
			testutil.SeedEvents(t, st, exp.ID, "control", store.EventView, 1)
			continue
		}
		if ev.Stats.Totals.Views == 1 {
			return
		}
	}
	t.Fatal("stream never reported the new view")
}

func TestStream_UnknownExperiment(t *testing.T) {
	ts, _ := startStream(t, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp := openStream(t, ctx, ts.URL+"/experiments/missing/stream")
	events := readMetricsEvents(t, bufio.NewScanner(resp.Body))

	for ev := range events {
		if ev.Loading {
			continue
		}
		if !strings.Contains(ev.Error, "404") {
			t.Errorf("expected 404 error, got %q", ev.Error)
		}
		return
	}
	t.Fatal("stream ended without an error event")
}
