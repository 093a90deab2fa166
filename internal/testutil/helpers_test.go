package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/TimurManjosov/abconsole/internal/mockapi"
)

func TestNewTestServer(t *testing.T) {
	server, memStore := NewTestServer(t, mockapi.Options{})

	if server == nil {
		t.Fatal("Expected non-nil server")
	}
	if memStore == nil {
		t.Fatal("Expected non-nil store")
	}

	exp := SeedExperiment(t, memStore, "test", "a", "b")
	if _, err := memStore.GetExperiment(context.Background(), exp.ID); err != nil {
		t.Fatalf("Store should be functional: %v", err)
	}
}

func TestHTTPRequest_Do(t *testing.T) {
	server, _ := NewTestServer(t, mockapi.Options{})

	req := &HTTPRequest{
		Method: "GET",
		Path:   "/healthz",
	}

	rr := req.Do(t, server.Router())

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got '%s'", rr.Body.String())
	}
}

func TestHTTPRequest_DoWithBody(t *testing.T) {
	server, _ := NewTestServer(t, mockapi.Options{})

	req := &HTTPRequest{
		Method: "POST",
		Path:   "/experiments",
		Body:   `{"name":"X","variants":[{"key":"a","name":"A"}]}`,
	}

	rr := req.Do(t, server.Router())

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"data"`) {
		t.Errorf("Expected enveloped response, got %s", rr.Body.String())
	}
}

func TestSeedEvents(t *testing.T) {
	_, memStore := NewTestServer(t, mockapi.Options{})
	exp := SeedExperiment(t, memStore, "test", "a")
	SeedEvents(t, memStore, exp.ID, "a", "view", 3)

	st, err := memStore.Stats(context.Background(), exp.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.Variants[0].Views != 3 {
		t.Errorf("Expected 3 views, got %d", st.Variants[0].Views)
	}
}
