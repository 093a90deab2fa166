// Package testutil provides a mock experiments backend and request helpers for tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimurManjosov/abconsole/internal/client"
	"github.com/TimurManjosov/abconsole/internal/mockapi"
	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/TimurManjosov/abconsole/internal/session"
	"github.com/TimurManjosov/abconsole/internal/store"
)

// NewTestServer creates a mock backend with an in-memory store.
func NewTestServer(t *testing.T, opts mockapi.Options) (*mockapi.Server, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	return mockapi.NewServer(memStore, opts), memStore
}

// NewBackend starts the mock backend on a local listener; it is closed with the test.
func NewBackend(t *testing.T, opts mockapi.Options) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	srv, memStore := NewTestServer(t, opts)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, memStore
}

// NewClient returns a client for baseURL whose session starts with token.
func NewClient(t *testing.T, baseURL, token string) *client.Client {
	t.Helper()
	sess, err := session.New(session.NewMemoryStore())
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	if token != "" {
		if err := sess.SetToken(token); err != nil {
			t.Fatalf("SetToken failed: %v", err)
		}
	}
	return client.NewClient(baseURL, sess)
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedExperiment creates an experiment with one variant per key.
func SeedExperiment(t *testing.T, st store.Store, name string, keys ...string) *model.Experiment {
	t.Helper()
	params := model.CreateExperimentPayload{Name: name}
	for _, k := range keys {
		params.Variants = append(params.Variants, model.CreateVariantPayload{Key: k, Name: k})
	}
	exp, err := st.CreateExperiment(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateExperiment failed: %v", err)
	}
	return exp
}

// SeedEvents tracks n events of eventType for the variant.
func SeedEvents(t *testing.T, st store.Store, experimentID, variantKey, eventType string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := st.InsertEvent(context.Background(), model.TrackEventPayload{
			ExperimentID: experimentID,
			VariantKey:   variantKey,
			EventType:    eventType,
		}); err != nil {
			t.Fatalf("InsertEvent failed: %v", err)
		}
	}
}
