// Package config loads the journey harness configuration: the target API,
// the test credentials, and which suites to run. The default file lives at
// ~/.hoho-journey/config.yaml (or config.json); every field has a default so
// the harness runs with no file at all.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the directory under the user's home for harness state.
const DefaultConfigDir = ".hoho-journey"

// DefaultConfigFile is the config file name within the config directory.
const DefaultConfigFile = "config.yaml"

// DefaultBaseURL is the production HOHO API.
const DefaultBaseURL = "https://api.hohopark.com"

// DefaultTimeoutSeconds bounds every HTTP call.
const DefaultTimeoutSeconds = 10

// Suite names accepted by Config.Suite.
const (
	SuiteJourneys = "journeys"
	SuiteSmoke    = "smoke"
	SuiteAll      = "all"
)

// UserCredentials are sent by the registration and login steps.
type UserCredentials struct {
	Phone    string `yaml:"phone" json:"phone"`
	Password string `yaml:"password" json:"password"`
	Code     string `yaml:"code" json:"code"` // SMS verification code
}

// AdminCredentials are sent by the admin login step.
type AdminCredentials struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Settings holds presentation options.
type Settings struct {
	Verbose bool `yaml:"verbose" json:"verbose"`
	NoColor bool `yaml:"no_color" json:"no_color"`
}

// Config represents the contents of a journey config file.
type Config struct {
	BaseURL        string           `yaml:"base_url" json:"base_url"`
	TimeoutSeconds int              `yaml:"timeout_seconds" json:"timeout_seconds"`
	Suite          string           `yaml:"suite" json:"suite"`
	Scenarios      string           `yaml:"scenarios" json:"scenarios,omitempty"`
	User           UserCredentials  `yaml:"user" json:"user"`
	Admin          AdminCredentials `yaml:"admin" json:"admin"`
	Settings       Settings         `yaml:"settings" json:"settings"`
}

// Default returns the built-in configuration: production URL and the shared test accounts.
func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		TimeoutSeconds: DefaultTimeoutSeconds,
		Suite:          SuiteJourneys,
		User: UserCredentials{
			Phone:    "13800138000",
			Password: "Test123456!",
			Code:     "123456",
		},
		Admin: AdminCredentials{
			Username: "admin",
			Password: "Admin@123456",
		},
	}
}

// configDir returns the path to the config directory.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// DefaultPath returns the config file to read when none is given. A
// config.json next to the YAML default wins.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return resolvePath(filepath.Join(dir, DefaultConfigFile)), nil
}

// resolvePath prefers a JSON sibling when path names the default YAML file.
func resolvePath(path string) string {
	base := filepath.Base(path)
	if base == "config.yaml" || base == "config.yml" {
		jsonPath := filepath.Join(filepath.Dir(path), "config.json")
		if _, err := os.Stat(jsonPath); err == nil {
			return jsonPath
		}
	}
	return path
}

// Load reads the config from the default location.
// Returns the default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file, falling back to defaults if it is missing.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and parses an explicitly named config file. The format is
// detected by extension. Unset fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (expected .json, .yaml, or .yml)", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from JOURNEY_* environment variables. Invalid
// numeric values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("JOURNEY_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := getenv("JOURNEY_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutSeconds = n
		}
	}
	if v := getenv("JOURNEY_SUITE"); v != "" {
		c.Suite = v
	}
	if v := getenv("JOURNEY_SCENARIOS"); v != "" {
		c.Scenarios = v
	}
}

// Validate checks that the config can drive a run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q: host is required", c.BaseURL)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	switch c.Suite {
	case SuiteJourneys, SuiteSmoke, SuiteAll:
	default:
		return fmt.Errorf("unknown suite %q (expected %s, %s, or %s)", c.Suite, SuiteJourneys, SuiteSmoke, SuiteAll)
	}
	return nil
}

// Timeout returns the per-call HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BaseURLTrimmed returns the base URL without a trailing slash so paths can
// be appended directly.
func (c *Config) BaseURLTrimmed() string {
	return strings.TrimRight(c.BaseURL, "/")
}
