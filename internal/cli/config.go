package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TimurManjosov/abconsole/internal/client"
	"github.com/TimurManjosov/abconsole/internal/session"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile represents configuration for one backend
type Profile struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	TokenFile string        `yaml:"token_file,omitempty"`
}

// GetConfigPath returns the path to the config file.
// ABCONSOLE_CONFIG overrides the default ~/.abconsole/config.yaml.
func GetConfigPath() (string, error) {
	if p := os.Getenv("ABCONSOLE_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".abconsole", "config.yaml"), nil
}

// LoadConfig loads the configuration from file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{
				DefaultProfile: "local",
				Profiles:       make(map[string]Profile),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetProfile resolves the backend settings for a command.
// Priority: command flags > environment variables > config file > defaults.
// Returns the profile and the effective profile name.
func GetProfile(profileName, baseURLFlag string) (*Profile, string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}

	if profileName == "" {
		profileName = cfg.DefaultProfile
	}

	prof, ok := cfg.Profiles[profileName]
	if !ok && profileName != cfg.DefaultProfile {
		return nil, "", fmt.Errorf("profile '%s' not found in config", profileName)
	}

	if baseURLFlag != "" {
		prof.BaseURL = baseURLFlag
	} else if envBaseURL := os.Getenv("API_BASE_URL"); envBaseURL != "" {
		prof.BaseURL = envBaseURL
	}
	if prof.BaseURL == "" {
		prof.BaseURL = client.DefaultBaseURL
	}
	if prof.Timeout <= 0 {
		prof.Timeout = client.DefaultTimeout
	}
	if envTokenFile := os.Getenv("TOKEN_FILE"); envTokenFile != "" {
		prof.TokenFile = envTokenFile
	}
	if prof.TokenFile == "" {
		path, err := session.DefaultCredentialsPath()
		if err != nil {
			return nil, "", err
		}
		prof.TokenFile = path
	}

	return &prof, profileName, nil
}

// InitConfig creates a default config file
func InitConfig() error {
	cfg := &Config{
		DefaultProfile: "local",
		Profiles: map[string]Profile{
			"local": {
				BaseURL: client.DefaultBaseURL,
			},
			"staging": {
				BaseURL: "https://ab-staging.example.com/api",
			},
			"prod": {
				BaseURL: "https://ab.example.com/api",
				Timeout: 5 * time.Second,
			},
		},
	}

	return SaveConfig(cfg)
}
