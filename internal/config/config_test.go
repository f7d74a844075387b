package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/xum1541"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ieeediag.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Adapter.Type != AdapterXUM1541 {
		t.Errorf("Expected adapter %s, got %s", AdapterXUM1541, cfg.Adapter.Type)
	}
	if cfg.Adapter.VendorID != xum1541.VendorID || cfg.Adapter.ProductID != xum1541.ProductID {
		t.Errorf("Expected %04X:%04X, got %04X:%04X", xum1541.VendorID, xum1541.ProductID, cfg.Adapter.VendorID, cfg.Adapter.ProductID)
	}
	ch, err := cfg.TargetChannel()
	if err != nil || ch.String() != "8:15" {
		t.Errorf("Expected target 8:15, got %v (%v)", ch, err)
	}
	if cfg.Pause != 100*time.Millisecond {
		t.Errorf("Expected pause 100ms, got %s", cfg.Pause)
	}
	if cfg.StatusSize != 256 {
		t.Errorf("Expected status size 256, got %d", cfg.StatusSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
adapter:
  type: simulator
  timeout: 5s
  sim_status: "00, OK,00,00\r"
target:
  device: 9
  channel: 15
pause: 250ms
log:
  level: debug
  format: json
`)
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvAdapter, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFile, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Adapter.Type != AdapterSimulator {
		t.Errorf("Expected adapter simulator, got %s", cfg.Adapter.Type)
	}
	if cfg.Adapter.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %s", cfg.Adapter.Timeout)
	}
	if cfg.Adapter.SimStatus != "00, OK,00,00\r" {
		t.Errorf("Expected sim status from file, got %q", cfg.Adapter.SimStatus)
	}
	if cfg.Target.Device != 9 {
		t.Errorf("Expected device 9, got %d", cfg.Target.Device)
	}
	if cfg.Pause != 250*time.Millisecond {
		t.Errorf("Expected pause 250ms, got %s", cfg.Pause)
	}
	// Unset keys keep their defaults.
	if cfg.Adapter.VendorID != xum1541.VendorID {
		t.Errorf("Expected default vendor id, got %04X", cfg.Adapter.VendorID)
	}
	if cfg.Log.MaxBackups != 3 {
		t.Errorf("Expected default max backups 3, got %d", cfg.Log.MaxBackups)
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	path := writeConfig(t, "pause: 1s\n")
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvAdapter, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFile, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Pause != time.Second {
		t.Errorf("Expected pause 1s, got %s", cfg.Pause)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error when loading non-existent file")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "adapter:\n  kind: xum1541\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unknown key")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv(EnvAdapter, "simulator")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFile, "/tmp/ieeediag.log")

	applyEnvOverrides(cfg)

	if cfg.Adapter.Type != AdapterSimulator {
		t.Errorf("Expected adapter simulator, got %s", cfg.Adapter.Type)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.File != "/tmp/ieeediag.log" {
		t.Errorf("Expected log file override, got %s", cfg.Log.File)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"sim alias", func(c *Config) { c.Adapter.Type = "sim" }, ""},
		{"unknown adapter", func(c *Config) { c.Adapter.Type = "gpib" }, "invalid adapter"},
		{"zero timeout", func(c *Config) { c.Adapter.Timeout = 0 }, "timeout"},
		{"device out of range", func(c *Config) { c.Target.Device = 31 }, "device"},
		{"channel out of range", func(c *Config) { c.Target.Channel = 32 }, "channel"},
		{"negative pause", func(c *Config) { c.Pause = -time.Millisecond }, "pause"},
		{"zero status size", func(c *Config) { c.StatusSize = 0 }, "status_size"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"negative backups", func(c *Config) { c.Log.MaxBackups = -1 }, "rotation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate returned error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSimAliasNormalized(t *testing.T) {
	cfg := Default()
	cfg.Adapter.Type = "sim"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Adapter.Type != AdapterSimulator {
		t.Fatalf("Expected adapter normalized to simulator, got %s", cfg.Adapter.Type)
	}
}

func TestXUM1541(t *testing.T) {
	cfg := Default()
	cfg.Adapter.Serial = "ZF-001"
	cfg.Adapter.Timeout = time.Second

	x := cfg.XUM1541()
	if x.Serial != "ZF-001" || x.Timeout != time.Second {
		t.Fatalf("xum1541 config = %+v", x)
	}
	if x.StatusPolls != xum1541.DefaultStatusPolls {
		t.Fatalf("Expected default status polls, got %d", x.StatusPolls)
	}
}

func TestLoadLeavesValidationToCaller(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvAdapter, "bogus")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFile, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Adapter.Type != "bogus" {
		t.Fatalf("Expected env adapter to be applied, got %s", cfg.Adapter.Type)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected Validate to reject adapter bogus")
	}

	// An override applied after Load wins over the environment.
	cfg.Adapter.Type = AdapterSimulator
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate after override returned error: %v", err)
	}
}
