// Package config provides YAML-based configuration for Skylight Core.
//
// Configuration is loaded from a single YAML file with three layers:
// hardcoded defaults, file values, then SKYLIGHT_* environment variable
// overrides for deployment-specific secrets (broker credentials, InfluxDB
// token) and addresses.
//
// # Sections
//
//   - lamps:     the physical lamps to control (id, host, optional name)
//   - engine:    Device Protocol Engine timings (poll cadence, staleness, timeouts)
//   - mqtt:      broker connection for the state bridge (optional)
//   - api:       HTTP REST/WebSocket server
//   - influxdb:  poll telemetry sink (optional)
//   - logging:   level/format/output
//
// Lamp hosts are validated only for presence; whether a lamp is actually
// reachable is discovered by the engine's first poll, so a powered-off lamp
// does not prevent startup.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	interval := cfg.GetPollInterval()
package config
