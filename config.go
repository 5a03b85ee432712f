package recce

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config errors
var (
	ErrInvalidConcurrency  = errors.New("invalid concurrency value")
	ErrInvalidProbeTimeout = errors.New("invalid probe timeout")
	ErrInvalidScheduleMode = errors.New("invalid schedule mode")
	ErrInvalidMinState     = errors.New("invalid minimum state")
	ErrInvalidPath         = errors.New("invalid path")
	ErrMissingCredentials  = errors.New("missing credentials for authentication")
)

// Schedule modes
const (
	ScheduleSliding = "sliding"
	ScheduleBatch   = "batch"
)

// DefaultConcurrency is the default number of simultaneous probes.
const DefaultConcurrency = 64

// Config represents the configuration for the recce application
type Config struct {
	// Scan configuration
	Target        string `json:"target"`
	Ports         string `json:"ports"`
	Concurrency   int    `json:"concurrency"`
	ScheduleMode  string `json:"schedule_mode"`
	ProbeTimeout  int    `json:"probe_timeout_millis"`
	EnableCaching bool   `json:"enable_caching"`
	CacheTTL      int    `json:"cache_ttl_minutes"`

	// Logging configuration
	LogDir   string `json:"log_dir"`
	LogLevel string `json:"log_level"`

	// Report configuration
	ReportDir     string   `json:"report_dir"`
	ReportFormats []string `json:"report_formats"`
	ConsoleReport bool     `json:"console_report"`
	MinState      string   `json:"min_state"`
	ShowProgress  bool     `json:"show_progress"`

	// Metrics configuration
	MetricsEnabled  bool   `json:"metrics_enabled"`
	MetricsPort     string `json:"metrics_port"`
	MetricsTLS      bool   `json:"metrics_tls"`
	MetricsHostname string `json:"metrics_hostname"`
	MetricsAuth     bool   `json:"metrics_auth"`
	MetricsUsername string `json:"metrics_username"`
	MetricsPassword string `json:"metrics_password"`
}

// LoadConfig loads configuration from a JSON file on top of the defaults
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.LogDir == "" {
		config.LogDir = "recce/logging"
	}
	if config.ReportDir == "" {
		config.ReportDir = "recce/reporting"
	}

	return config, nil
}

// SaveConfig saves the current configuration to a file
func (c *Config) SaveConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Concurrency:   DefaultConcurrency,
		ScheduleMode:  ScheduleSliding,
		ProbeTimeout:  0,
		EnableCaching: true,
		CacheTTL:      10,

		LogDir:   "recce/logging",
		LogLevel: "info",

		ReportDir:     "recce/reporting",
		ReportFormats: []string{},
		ConsoleReport: true,
		MinState:      "closed",
		ShowProgress:  false,

		MetricsEnabled:  false,
		MetricsPort:     "9137",
		MetricsTLS:      false,
		MetricsHostname: "localhost",
		MetricsAuth:     false,
	}
}

// ProbeTimeoutDuration returns the per-attempt connect timeout.
func (c *Config) ProbeTimeoutDuration() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Millisecond
}

// MinimumState returns the report threshold.
func (c *Config) MinimumState() PortState {
	state, err := ParsePortState(c.MinState)
	if err != nil {
		return StateUnknown
	}
	return state
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.Concurrency)
	}

	if c.ProbeTimeout < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidProbeTimeout, c.ProbeTimeout)
	}

	c.ScheduleMode = strings.ToLower(c.ScheduleMode)
	if c.ScheduleMode != ScheduleSliding && c.ScheduleMode != ScheduleBatch {
		return fmt.Errorf("%w: %q", ErrInvalidScheduleMode, c.ScheduleMode)
	}

	if _, err := ParsePortState(c.MinState); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMinState, err)
	}

	if c.LogDir == "" || (len(c.ReportFormats) > 0 && c.ReportDir == "") {
		return fmt.Errorf("%w: directory paths cannot be empty", ErrInvalidPath)
	}

	logLevel := strings.ToLower(c.LogLevel)
	if logLevel != "debug" && logLevel != "info" && logLevel != "warn" && logLevel != "error" {
		c.LogLevel = "info"
	}

	if c.MetricsAuth && (c.MetricsUsername == "" || c.MetricsPassword == "") {
		return fmt.Errorf("%w: both username and password required when auth enabled", ErrMissingCredentials)
	}

	validFormats := map[string]bool{
		"csv":  true,
		"pdf":  true,
		"json": true,
		"xml":  true,
	}
	formats := c.ReportFormats[:0]
	for _, format := range c.ReportFormats {
		format = strings.ToLower(strings.TrimSpace(format))
		if validFormats[format] {
			formats = append(formats, format)
		}
	}
	c.ReportFormats = formats

	return nil
}
