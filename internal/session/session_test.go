package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSession_LoadsPersistedToken(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save("abc")

	s, err := New(store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := s.Token(); got != "abc" {
		t.Errorf("Expected token 'abc', got '%s'", got)
	}
}

func TestSession_EvictClearsStore(t *testing.T) {
	store := NewMemoryStore()
	s, _ := New(store)

	if err := s.SetToken("secret"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if err := s.Evict(); err != nil {
		t.Fatalf("Evict failed: %v", err)
	}

	if s.Token() != "" {
		t.Errorf("Expected empty token after evict, got '%s'", s.Token())
	}
	if tok, _ := store.Load(); tok != "" {
		t.Errorf("Expected store cleared after evict, got '%s'", tok)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	fs := NewFileStore(path)

	tok, err := fs.Load()
	if err != nil {
		t.Fatalf("Load on missing file failed: %v", err)
	}
	if tok != "" {
		t.Errorf("Expected empty token for missing file, got '%s'", tok)
	}

	if err := fs.Save("t-123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected file mode 0600, got %v", info.Mode().Perm())
	}

	tok, _ = fs.Load()
	if tok != "t-123" {
		t.Errorf("Expected 't-123', got '%s'", tok)
	}

	if err := fs.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := fs.Clear(); err != nil {
		t.Errorf("Second Clear should be a no-op, got %v", err)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	fs := NewFileStore(path)
	s, err := New(fs)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := Watch(ctx, s, fs, zerolog.Nop()); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// A second writer, e.g. another process running login.
	if err := NewFileStore(path).Save("from-login"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Token() == "from-login" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected session to pick up 'from-login', got '%s'", s.Token())
}
