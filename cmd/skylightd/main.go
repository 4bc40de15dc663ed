// Skylight Core - Programmable LED Lamp Controller
//
// This is the main entry point for the Skylight Core daemon. It speaks
// the lamp firmware's local HTTP dialect on one side and exposes a REST
// API, a WebSocket event stream and an optional MQTT bridge on the
// other. All lamp traffic is serialized per lamp; the daemon is the
// single writer on the network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/skylight-core/internal/api"
	"github.com/nerrad567/skylight-core/internal/bridge"
	"github.com/nerrad567/skylight-core/internal/infrastructure/config"
	"github.com/nerrad567/skylight-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/skylight-core/internal/infrastructure/logging"
	"github.com/nerrad567/skylight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/skylight-core/internal/skylight"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit // Linear startup sequence: config, engine, surfaces
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Skylight Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "lamps", len(cfg.Lamps))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the lamp registry. Sessions start polling immediately;
	// unreachable lamps surface as consecutive failures, not startup
	// errors.
	registry := skylight.NewRegistry()
	defer func() {
		log.Info("closing lamp sessions")
		registry.CloseAll()
	}()

	sessionCfg := skylight.SessionConfig{
		PollInterval:       cfg.GetPollInterval(),
		StalenessThreshold: cfg.GetStalenessThreshold(),
		CommandTimeout:     cfg.GetCommandTimeout(),
		PollTimeout:        cfg.GetPollTimeout(),
	}
	for _, lamp := range cfg.Lamps {
		session := skylight.NewSession(
			skylight.Endpoint{ID: lamp.ID, Host: lamp.Host, Name: lamp.Name},
			sessionCfg,
			log.With("lamp_id", lamp.ID),
		)
		if influxClient != nil {
			session.OnUpdate(func(endpoint skylight.Endpoint, snap skylight.Snapshot) {
				influxClient.WriteLampChannels(endpoint.ID, snap.Status.Channels,
					snap.Status.PWMFreq, snap.Status.ManualIntensity)
				influxClient.WriteLampSchedule(endpoint.ID, snap.Status.ScheduleEnabled,
					snap.Status.ScheduleItems, snap.Status.ScheduleActiveIdx)
			})
		}
		if err := registry.Add(session); err != nil {
			return fmt.Errorf("registering lamp %s: %w", lamp.ID, err)
		}
	}
	log.Info("lamp registry initialised", "lamps", registry.Count())

	// Connect the MQTT bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		sessions := registry.List()
		sources := make([]bridge.StatusSource, 0, len(sessions))
		for _, session := range sessions {
			sources = append(sources, session)
		}
		resolve := func(id string) (bridge.Controller, error) {
			session, err := registry.Get(id)
			if err != nil {
				return nil, err
			}
			return session, nil
		}

		mqttBridge := bridge.New(mqttClient, resolve, sources, byte(cfg.MQTT.QoS), log)
		if err := mqttBridge.Start(); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer mqttBridge.Stop()

		for _, session := range sessions {
			session.OnUpdate(mqttBridge.HandleUpdate)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("Skylight Core started", "api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// getConfigPath returns the config file path from SKYLIGHT_CONFIG or
// the default location.
func getConfigPath() string {
	if path := os.Getenv("SKYLIGHT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
