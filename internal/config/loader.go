// Package config loads client configuration from an optional YAML file with
// environment variable overrides. Environment values always win over file
// values so deployments can tweak a shared file without editing it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "15s" decode.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config captures everything the client needs to reach the reservation store
// and compute slots on the lab clock.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Lab      LabConfig      `yaml:"lab"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// GatewayConfig addresses the reservation store.
type GatewayConfig struct {
	BaseURL           string   `yaml:"base_url"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
}

// LabConfig fixes the lab clock and operating window.
type LabConfig struct {
	Timezone       string   `yaml:"timezone"`
	OpenHour       int      `yaml:"open_hour"`
	CloseHour      int      `yaml:"close_hour"`
	SlotLength     Duration `yaml:"slot_length"`
	MaxAdvanceDays int      `yaml:"max_advance_days"`
}

// SnapshotConfig bounds staleness of the advisory reservation snapshot.
type SnapshotConfig struct {
	TTL Duration `yaml:"ttl"`
}

// Load reads the YAML file at path when it exists, then applies LABSCHED_*
// environment overrides. A missing file is not an error; defaults apply. An
// empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Config{
		Gateway: GatewayConfig{
			BaseURL:           "http://localhost:8000/api",
			Timeout:           Duration(15 * time.Second),
			RequestsPerSecond: 5,
		},
		Lab: LabConfig{
			Timezone:       "America/Chicago",
			OpenHour:       8,
			CloseHour:      20,
			SlotLength:     Duration(time.Hour),
			MaxAdvanceDays: 90,
		},
		Snapshot: SnapshotConfig{TTL: Duration(30 * time.Second)},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults plus environment apply.
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	invalid := make([]string, 0, 2)

	if v := strings.TrimSpace(os.Getenv("LABSCHED_GATEWAY_URL")); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LABSCHED_GATEWAY_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "LABSCHED_GATEWAY_TIMEOUT")
		} else {
			cfg.Gateway.Timeout = Duration(d)
		}
	}
	if v := strings.TrimSpace(os.Getenv("LABSCHED_GATEWAY_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			invalid = append(invalid, "LABSCHED_GATEWAY_RPS")
		} else {
			cfg.Gateway.RequestsPerSecond = rps
		}
	}
	if v := strings.TrimSpace(os.Getenv("LABSCHED_LAB_TIMEZONE")); v != "" {
		cfg.Lab.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("LABSCHED_SLOT_LENGTH")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "LABSCHED_SLOT_LENGTH")
		} else {
			cfg.Lab.SlotLength = Duration(d)
		}
	}
	if v := strings.TrimSpace(os.Getenv("LABSCHED_SNAPSHOT_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "LABSCHED_SNAPSHOT_TTL")
		} else {
			cfg.Snapshot.TTL = Duration(d)
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid environment values: %s", strings.Join(invalid, ", "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	invalid := make([]string, 0, 2)
	if c.Gateway.BaseURL == "" {
		invalid = append(invalid, "gateway.base_url")
	}
	if c.Lab.OpenHour < 0 || c.Lab.CloseHour > 24 || c.Lab.OpenHour >= c.Lab.CloseHour {
		invalid = append(invalid, "lab.open_hour/close_hour")
	}
	if c.Lab.SlotLength <= 0 {
		invalid = append(invalid, "lab.slot_length")
	}
	if c.Lab.MaxAdvanceDays < 0 {
		invalid = append(invalid, "lab.max_advance_days")
	}
	if c.Snapshot.TTL <= 0 {
		invalid = append(invalid, "snapshot.ttl")
	}
	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}
	return nil
}
