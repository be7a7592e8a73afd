// Package config loads the JSON configuration for the device adapter and
// the poll loop that drives it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/device.defaults.json"

// DeviceConfig is the root configuration. Every field is optional; the Get*
// methods supply defaults for anything the file leaves out.
type DeviceConfig struct {
	// Adapter params
	MaxPacket *int `json:"max_packet,omitempty"`

	// Poll loop params
	PollInterval  *string `json:"poll_interval,omitempty"`  // duration string like "1ms"
	StatsInterval *string `json:"stats_interval,omitempty"` // duration string like "10s"

	// Observation params
	CaptureMode *string `json:"capture_mode,omitempty"` // "both", "rx" or "tx"
	Trace       *bool   `json:"trace,omitempty"`

	// Live handle params
	SnapLen     *int    `json:"snap_len,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty"` // duration string like "1ms"
}

// Maximum buffer capacity accepted for max_packet (a 64 KiB jumbo frame).
const maxMaxPacket = 65535

// EmptyDeviceConfig returns a DeviceConfig with all fields set to nil.
func EmptyDeviceConfig() *DeviceConfig {
	return &DeviceConfig{}
}

// LoadDeviceConfig loads a DeviceConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the file fall back to the Get* defaults, so partial configs are safe.
func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDeviceConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *DeviceConfig) Validate() error {
	if c.MaxPacket != nil {
		if *c.MaxPacket <= 0 || *c.MaxPacket > maxMaxPacket {
			return fmt.Errorf("max_packet must be between 1 and %d, got %d", maxMaxPacket, *c.MaxPacket)
		}
	}

	durations := []struct {
		name  string
		value *string
	}{
		{"poll_interval", c.PollInterval},
		{"stats_interval", c.StatsInterval},
		{"read_timeout", c.ReadTimeout},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.value)
		}
	}

	if c.CaptureMode != nil {
		switch strings.ToLower(*c.CaptureMode) {
		case "", "both", "rx", "tx":
		default:
			return fmt.Errorf("capture_mode must be one of both, rx, tx; got %q", *c.CaptureMode)
		}
	}

	if c.SnapLen != nil && *c.SnapLen <= 0 {
		return fmt.Errorf("snap_len must be positive, got %d", *c.SnapLen)
	}

	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}

// GetMaxPacket returns the max_packet value or the default.
func (c *DeviceConfig) GetMaxPacket() int {
	if c.MaxPacket == nil {
		return 1500
	}
	return *c.MaxPacket
}

// GetPollInterval parses and returns the PollInterval as a time.Duration.
func (c *DeviceConfig) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, time.Millisecond)
}

// GetStatsInterval parses and returns the StatsInterval as a time.Duration.
func (c *DeviceConfig) GetStatsInterval() time.Duration {
	return durationOr(c.StatsInterval, 10*time.Second)
}

// GetReadTimeout parses and returns the ReadTimeout as a time.Duration.
func (c *DeviceConfig) GetReadTimeout() time.Duration {
	return durationOr(c.ReadTimeout, time.Millisecond)
}

// GetCaptureMode returns the capture_mode value or the default.
func (c *DeviceConfig) GetCaptureMode() string {
	if c.CaptureMode == nil || *c.CaptureMode == "" {
		return "both"
	}
	return strings.ToLower(*c.CaptureMode)
}

// GetTrace returns the trace value or the default.
func (c *DeviceConfig) GetTrace() bool {
	if c.Trace == nil {
		return false
	}
	return *c.Trace
}

// GetSnapLen returns the snap_len value or the default.
func (c *DeviceConfig) GetSnapLen() int {
	if c.SnapLen == nil {
		return 65535
	}
	return *c.SnapLen
}
