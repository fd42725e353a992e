// Package config manages the application configuration: API credentials
// for the search and analysis backends, mailer settings, the decision
// policy knobs, and storage paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var (
	ErrSearchKeyNotSet   = errors.New("search API key is not configured: set search.api_key or LIBTRACK_SEARCH_API_KEY")
	ErrAnalyzerKeyNotSet = errors.New("analyzer API key is not configured: set analyzer.api_key or LIBTRACK_ANALYZER_API_KEY")
	ErrMailerNotSet      = errors.New("mailer is not configured: set mailer.api_token and mailer.from_email, or enable mailer.dry_run")
	ErrInvalidRunTime    = errors.New("invalid run time: must be HH:MM in 24-hour form")
	ErrInvalidPolicy     = errors.New("invalid policy: thresholds must be between 0 and 100")
)

// runTimeRegex validates HH:MM in 24-hour form
var runTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Config represents the application configuration
type Config struct {
	Search   SearchConfig   `yaml:"search"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Mailer   MailerConfig   `yaml:"mailer"`
	Policy   PolicyConfig   `yaml:"policy"`
	Check    CheckConfig    `yaml:"check"`
	Storage  StorageConfig  `yaml:"storage"`
}

// SearchConfig holds web-search backend settings
type SearchConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint,omitempty"` // override for testing
}

// AnalyzerConfig holds LLM analysis backend settings
type AnalyzerConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

// MailerConfig holds notification delivery settings
type MailerConfig struct {
	APIToken  string `yaml:"api_token"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name,omitempty"`
	// DryRun renders digests without sending them
	DryRun bool `yaml:"dry_run,omitempty"`
}

// PolicyConfig holds the future-update decision thresholds.
type PolicyConfig struct {
	// MinConfidence is the floor below which future updates are recorded
	// silently instead of notified
	MinConfidence int `yaml:"min_confidence"`
	// MinConfidenceIncrease is the growth required before a tracked
	// future update is re-notified as a confidence update
	MinConfidenceIncrease int `yaml:"min_confidence_increase"`
}

// CheckConfig holds pass scheduling and throttling settings
type CheckConfig struct {
	// RunTime is the daily run time in HH:MM 24-hour form
	RunTime string `yaml:"run_time"`
	// ThrottleSeconds is the minimum delay between upstream lookups
	ThrottleSeconds int `yaml:"throttle_seconds"`
}

// StorageConfig holds file locations
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	ProjectsPath string `yaml:"projects_path"`
}

// Defaults applied when the config file omits a value
const (
	DefaultMinConfidence         = 70
	DefaultMinConfidenceIncrease = 15
	DefaultRunTime               = "09:00"
	DefaultThrottleSeconds       = 2
	DefaultModel                 = "llama-3.3-70b-versatile"
)

// ConfigPaths returns all possible config file paths in priority order
// 1. ~/.config/libtrack/config.yaml (XDG standard - priority)
// 2. ~/.libtrack/config.yaml (legacy fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "libtrack", "config.yaml"),
		filepath.Join(home, ".libtrack", "config.yaml"),
	}, nil
}

// DefaultConfigPath returns the default config file path (XDG standard)
func DefaultConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// FindConfigPath returns the first existing config file path
// Returns the default path if no config file exists yet
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// No config exists, return default (XDG) path for creation
	return paths[0], nil
}

// Load reads configuration from the first available config file
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path. A missing
// file yields a default config written back to that path. Environment
// variables override file values for credentials.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig(path)
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				return nil, saveErr
			}
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults(path)
	cfg.applyEnv()
	return &cfg, nil
}

// defaultConfig builds the configuration written on first run.
func defaultConfig(path string) *Config {
	cfg := &Config{}
	cfg.applyDefaults(path)
	return cfg
}

func (c *Config) applyDefaults(path string) {
	if c.Policy.MinConfidence == 0 {
		c.Policy.MinConfidence = DefaultMinConfidence
	}
	if c.Policy.MinConfidenceIncrease == 0 {
		c.Policy.MinConfidenceIncrease = DefaultMinConfidenceIncrease
	}
	if c.Check.RunTime == "" {
		c.Check.RunTime = DefaultRunTime
	}
	if c.Check.ThrottleSeconds == 0 {
		c.Check.ThrottleSeconds = DefaultThrottleSeconds
	}
	if c.Analyzer.Model == "" {
		c.Analyzer.Model = DefaultModel
	}
	dir := filepath.Dir(path)
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = filepath.Join(dir, "tracker.db")
	}
	if c.Storage.ProjectsPath == "" {
		c.Storage.ProjectsPath = filepath.Join(dir, "projects.toml")
	}
}

// applyEnv overlays credentials from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("LIBTRACK_SEARCH_API_KEY"); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv("LIBTRACK_ANALYZER_API_KEY"); v != "" {
		c.Analyzer.APIKey = v
	}
	if v := os.Getenv("LIBTRACK_MAILER_TOKEN"); v != "" {
		c.Mailer.APIToken = v
	}
}

// Save writes configuration to the default config file
func (c *Config) Save() error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// Credentials may be present
	return os.WriteFile(path, data, 0600)
}

// ValidateRunTime checks an HH:MM run time string.
func ValidateRunTime(s string) error {
	if !runTimeRegex.MatchString(s) {
		return fmt.Errorf("%w: got %q", ErrInvalidRunTime, s)
	}
	return nil
}

// ValidateForCheck verifies everything a check pass needs. A
// misconfiguration here is fatal: the pass must not run half-armed.
func (c *Config) ValidateForCheck() error {
	if c.Search.APIKey == "" {
		return ErrSearchKeyNotSet
	}
	if c.Analyzer.APIKey == "" {
		return ErrAnalyzerKeyNotSet
	}
	if !c.Mailer.DryRun && (c.Mailer.APIToken == "" || c.Mailer.FromEmail == "") {
		return ErrMailerNotSet
	}
	if err := ValidateRunTime(c.Check.RunTime); err != nil {
		return err
	}
	if c.Policy.MinConfidence < 0 || c.Policy.MinConfidence > 100 ||
		c.Policy.MinConfidenceIncrease < 0 || c.Policy.MinConfidenceIncrease > 100 {
		return ErrInvalidPolicy
	}
	return nil
}
