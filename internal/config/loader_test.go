package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LABSCHED_GATEWAY_URL",
		"LABSCHED_GATEWAY_TIMEOUT",
		"LABSCHED_GATEWAY_RPS",
		"LABSCHED_LAB_TIMEZONE",
		"LABSCHED_SLOT_LENGTH",
		"LABSCHED_SNAPSHOT_TTL",
	} {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults without a file", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.Gateway.BaseURL != "http://localhost:8000/api" {
			t.Fatalf("unexpected default base URL: %q", cfg.Gateway.BaseURL)
		}
		if cfg.Lab.Timezone != "America/Chicago" {
			t.Fatalf("unexpected default timezone: %q", cfg.Lab.Timezone)
		}
		if cfg.Lab.OpenHour != 8 || cfg.Lab.CloseHour != 20 {
			t.Fatalf("unexpected operating window: %d-%d", cfg.Lab.OpenHour, cfg.Lab.CloseHour)
		}
		if cfg.Lab.SlotLength.Std() != time.Hour {
			t.Fatalf("unexpected slot length: %s", cfg.Lab.SlotLength.Std())
		}
		if cfg.Snapshot.TTL.Std() != 30*time.Second {
			t.Fatalf("unexpected snapshot TTL: %s", cfg.Snapshot.TTL.Std())
		}
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Gateway.RequestsPerSecond != 5 {
			t.Fatalf("unexpected rate limit: %v", cfg.Gateway.RequestsPerSecond)
		}
	})

	t.Run("reads the YAML file", func(t *testing.T) {
		clearEnv(t)

		path := filepath.Join(t.TempDir(), "labsched.yaml")
		content := `gateway:
  base_url: https://lab.example.edu/api
  timeout: 5s
  requests_per_second: 2
lab:
  timezone: America/Denver
  open_hour: 9
  close_hour: 17
  slot_length: 30m
snapshot:
  ttl: 10s
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Gateway.BaseURL != "https://lab.example.edu/api" {
			t.Fatalf("unexpected base URL: %q", cfg.Gateway.BaseURL)
		}
		if cfg.Gateway.Timeout.Std() != 5*time.Second {
			t.Fatalf("unexpected timeout: %s", cfg.Gateway.Timeout.Std())
		}
		if cfg.Lab.Timezone != "America/Denver" {
			t.Fatalf("unexpected timezone: %q", cfg.Lab.Timezone)
		}
		if cfg.Lab.SlotLength.Std() != 30*time.Minute {
			t.Fatalf("unexpected slot length: %s", cfg.Lab.SlotLength.Std())
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		clearEnv(t)

		path := filepath.Join(t.TempDir(), "labsched.yaml")
		if err := os.WriteFile(path, []byte("gateway:\n  base_url: https://file.example.edu/api\n"), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("LABSCHED_GATEWAY_URL", "https://env.example.edu/api")
		t.Setenv("LABSCHED_SNAPSHOT_TTL", "90s")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Gateway.BaseURL != "https://env.example.edu/api" {
			t.Fatalf("expected environment override, got %q", cfg.Gateway.BaseURL)
		}
		if cfg.Snapshot.TTL.Std() != 90*time.Second {
			t.Fatalf("unexpected snapshot TTL: %s", cfg.Snapshot.TTL.Std())
		}
	})

	t.Run("rejects invalid environment values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LABSCHED_GATEWAY_TIMEOUT", "not-a-duration")

		if _, err := Load(""); err == nil {
			t.Fatal("expected error for invalid LABSCHED_GATEWAY_TIMEOUT")
		}
	})

	t.Run("rejects an inverted operating window", func(t *testing.T) {
		clearEnv(t)

		path := filepath.Join(t.TempDir(), "labsched.yaml")
		if err := os.WriteFile(path, []byte("lab:\n  open_hour: 20\n  close_hour: 8\n"), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		if _, err := Load(path); err == nil {
			t.Fatal("expected error for inverted operating window")
		}
	})
}
