package recce

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if config.Concurrency != 64 || config.ScheduleMode != ScheduleSliding {
		t.Fatalf("unexpected defaults: %+v", config)
	}
	if config.ProbeTimeoutDuration() != 0 {
		t.Fatalf("default probe timeout = %v", config.ProbeTimeoutDuration())
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"negative timeout", func(c *Config) { c.ProbeTimeout = -1 }, ErrInvalidProbeTimeout},
		{"bad mode", func(c *Config) { c.ScheduleMode = "pool" }, ErrInvalidScheduleMode},
		{"bad min state", func(c *Config) { c.MinState = "listening" }, ErrInvalidMinState},
		{"empty log dir", func(c *Config) { c.LogDir = "" }, ErrInvalidPath},
		{"reports without dir", func(c *Config) { c.ReportFormats = []string{"csv"}; c.ReportDir = "" }, ErrInvalidPath},
		{"auth without password", func(c *Config) { c.MetricsAuth = true; c.MetricsUsername = "u" }, ErrMissingCredentials},
		{"upper-case mode", func(c *Config) { c.ScheduleMode = "BATCH" }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.modify(config)
			err := config.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestConfigValidate_NormalizesFormatsAndLevel(t *testing.T) {
	config := DefaultConfig()
	config.ReportFormats = []string{" CSV", "html", "json", "pdf"}
	config.LogLevel = "verbose"
	if err := config.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !reflect.DeepEqual(config.ReportFormats, []string{"csv", "json", "pdf"}) {
		t.Fatalf("formats = %v", config.ReportFormats)
	}
	if config.LogLevel != "info" {
		t.Fatalf("log level = %q", config.LogLevel)
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "recce.json")

	config := DefaultConfig()
	config.Target = "scanme.example.org"
	config.Ports = "22 80-90"
	config.Concurrency = 16
	config.ProbeTimeout = 750
	config.MinState = "open"
	if err := config.SaveConfig(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(config, loaded) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", config, loaded)
	}
	if loaded.ProbeTimeoutDuration() != 750*time.Millisecond {
		t.Fatalf("timeout = %v", loaded.ProbeTimeoutDuration())
	}
	if loaded.MinimumState() != StateOpen {
		t.Fatalf("min state = %s", loaded.MinimumState())
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recce.json")
	if err := os.WriteFile(path, []byte(`{"concurrency": 8}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Concurrency != 8 || config.ScheduleMode != ScheduleSliding || config.MinState != "closed" {
		t.Fatalf("unexpected config %+v", config)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed file")
	}
}
