package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/ieee488"
	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/xum1541"
)

// Environment variables read by Load.
const (
	EnvConfigFile = "IEEEDIAG_CONFIG"
	EnvAdapter    = "IEEEDIAG_ADAPTER"
	EnvLogLevel   = "IEEEDIAG_LOG_LEVEL"
	EnvLogFile    = "IEEEDIAG_LOG_FILE"
)

// Adapter types.
const (
	AdapterXUM1541   = "xum1541"
	AdapterSimulator = "simulator"
)

// Config represents the complete configuration for ieeediag.
type Config struct {
	Adapter    AdapterConfig `yaml:"adapter"`
	Target     TargetConfig  `yaml:"target"`
	Pause      time.Duration `yaml:"pause"`
	StatusSize int           `yaml:"status_size"`
	Log        LogConfig     `yaml:"log"`
}

// AdapterConfig selects and tunes the USB adapter.
type AdapterConfig struct {
	Type      string        `yaml:"type"`
	VendorID  uint16        `yaml:"vendor_id"`
	ProductID uint16        `yaml:"product_id"`
	Serial    string        `yaml:"serial"`
	Timeout   time.Duration `yaml:"timeout"`
	// SimStatus is the reply the simulator adapter returns to a status read.
	SimStatus string `yaml:"sim_status"`
}

// TargetConfig is the bus endpoint commands are sent to.
type TargetConfig struct {
	Device  uint8 `yaml:"device"`
	Channel uint8 `yaml:"channel"`
}

// LogConfig holds logging settings. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $IEEEDIAG_CONFIG when path is empty), then environment overrides.
// The result is not validated: callers apply their own overrides first and
// then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the built-in configuration: an xum1541 adapter talking to
// the drive diagnostics channel 8:15.
func Default() *Config {
	return &Config{
		Adapter: AdapterConfig{
			Type:      AdapterXUM1541,
			VendorID:  xum1541.VendorID,
			ProductID: xum1541.ProductID,
			Timeout:   xum1541.DefaultTimeout,
		},
		Target: TargetConfig{
			Device:  8,
			Channel: 15,
		},
		Pause:      100 * time.Millisecond,
		StatusSize: 256,
		Log: LogConfig{
			Level:      "warn",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if adapter := os.Getenv(EnvAdapter); adapter != "" {
		cfg.Adapter.Type = adapter
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if file := os.Getenv(EnvLogFile); file != "" {
		cfg.Log.File = file
	}
}

// Validate checks field ranges and enumerations
func (c *Config) Validate() error {
	switch c.Adapter.Type {
	case AdapterXUM1541, AdapterSimulator:
	case "sim":
		c.Adapter.Type = AdapterSimulator
	default:
		return fmt.Errorf("invalid adapter %q, must be one of: %s, %s", c.Adapter.Type, AdapterXUM1541, AdapterSimulator)
	}
	if c.Adapter.Timeout <= 0 {
		return fmt.Errorf("adapter timeout must be positive, got %s", c.Adapter.Timeout)
	}
	if _, err := c.TargetChannel(); err != nil {
		return err
	}
	if c.StatusSize < 1 || c.StatusSize > xum1541.MaxTransfer {
		return fmt.Errorf("status_size must be in [1, %d], got %d", xum1541.MaxTransfer, c.StatusSize)
	}
	if c.Pause < 0 {
		return fmt.Errorf("pause must not be negative, got %s", c.Pause)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be text or json", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return nil
}

// TargetChannel returns the validated bus endpoint.
func (c *Config) TargetChannel() (ieee488.DeviceChannel, error) {
	return ieee488.NewDeviceChannel(c.Target.Device, c.Target.Channel)
}

// XUM1541 returns the adapter settings for xum1541.Open.
func (c *Config) XUM1541() xum1541.Config {
	cfg := xum1541.DefaultConfig()
	cfg.VendorID = c.Adapter.VendorID
	cfg.ProductID = c.Adapter.ProductID
	cfg.Serial = c.Adapter.Serial
	cfg.Timeout = c.Adapter.Timeout
	return cfg
}
