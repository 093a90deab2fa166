package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/TimurManjosov/abconsole/internal/client"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("ABCONSOLE_CONFIG", path)
	t.Setenv("API_BASE_URL", "")
	t.Setenv("TOKEN_FILE", filepath.Join(t.TempDir(), "credentials.yaml"))
	return path
}

func TestLoadConfig_MissingFile(t *testing.T) {
	useTempConfig(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DefaultProfile != "local" {
		t.Errorf("DefaultProfile = %q, want local", cfg.DefaultProfile)
	}
	if cfg.Profiles == nil {
		t.Error("expected non-nil profiles map")
	}
}

func TestInitConfig_RoundTrip(t *testing.T) {
	useTempConfig(t)

	if err := InitConfig(); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	want := map[string]Profile{
		"local":   {BaseURL: client.DefaultBaseURL},
		"staging": {BaseURL: "https://ab-staging.example.com/api"},
		"prod":    {BaseURL: "https://ab.example.com/api", Timeout: 5 * time.Second},
	}
	if diff := cmp.Diff(want, cfg.Profiles); diff != "" {
		t.Errorf("profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestGetProfile_Priority(t *testing.T) {
	useTempConfig(t)
	if err := SaveConfig(&Config{
		DefaultProfile: "staging",
		Profiles: map[string]Profile{
			"staging": {BaseURL: "http://file.example/api"},
		},
	}); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	prof, name, err := GetProfile("", "")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if name != "staging" || prof.BaseURL != "http://file.example/api" {
		t.Errorf("file: got %s %s", name, prof.BaseURL)
	}

	t.Setenv("API_BASE_URL", "http://env.example/api")
	prof, _, _ = GetProfile("", "")
	if prof.BaseURL != "http://env.example/api" {
		t.Errorf("env should override file, got %s", prof.BaseURL)
	}

	prof, _, _ = GetProfile("", "http://flag.example/api")
	if prof.BaseURL != "http://flag.example/api" {
		t.Errorf("flag should override env, got %s", prof.BaseURL)
	}
}

func TestGetProfile_Defaults(t *testing.T) {
	useTempConfig(t)

	prof, name, err := GetProfile("", "")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if name != "local" {
		t.Errorf("name = %q", name)
	}
	if prof.BaseURL != client.DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", prof.BaseURL, client.DefaultBaseURL)
	}
	if prof.Timeout != client.DefaultTimeout {
		t.Errorf("Timeout = %v", prof.Timeout)
	}
	if prof.TokenFile == "" {
		t.Error("expected a token file")
	}
}

func TestGetProfile_Unknown(t *testing.T) {
	useTempConfig(t)

	if _, _, err := GetProfile("missing", ""); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
