package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("SKYLIGHT_CONFIG")
	defer os.Setenv("SKYLIGHT_CONFIG", originalEnv)

	os.Setenv("SKYLIGHT_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_NoLampsConfigured verifies run fails validation without lamps.
func TestRun_NoLampsConfigured(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
lamps: []

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("SKYLIGHT_CONFIG")
	defer os.Setenv("SKYLIGHT_CONFIG", originalEnv)
	os.Setenv("SKYLIGHT_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without configured lamps")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("SKYLIGHT_CONFIG")
	defer os.Setenv("SKYLIGHT_CONFIG", originalEnv)

	os.Unsetenv("SKYLIGHT_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("SKYLIGHT_CONFIG")
	defer os.Setenv("SKYLIGHT_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("SKYLIGHT_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_StartupAndShutdown tests startup with MQTT and InfluxDB
// disabled. The lamp host is unreachable; that is absorbed by the poll
// loop and must not fail startup.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
lamps:
  - id: tank-main
    host: "127.0.0.1:1"
    name: Tank Main

engine:
  poll_interval: 3600
  staleness_threshold: 7200
  command_timeout: 1
  poll_timeout: 1

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  host: "127.0.0.1"
  port: 18089
  timeouts:
    read: 30
    write: 60
    idle: 120

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("SKYLIGHT_CONFIG")
	defer os.Setenv("SKYLIGHT_CONFIG", originalEnv)
	os.Setenv("SKYLIGHT_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error: %v", err)
	}
}
