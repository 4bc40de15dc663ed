package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/skylight-core/internal/infrastructure/config"
	"github.com/nerrad567/skylight-core/internal/infrastructure/logging"
	"github.com/nerrad567/skylight-core/internal/skylight"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *skylight.Registry
	Version  string
}

// Server is the HTTP API server for Skylight Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	registry *skylight.Registry
	version  string
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, lamp registry)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("lamp registry is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		registry: deps.Registry,
		version:  deps.Version,
	}, nil
}

// Start begins serving HTTP requests in a background goroutine.
//
// It creates the WebSocket hub, wires every registered lamp session's
// update stream into it, and starts the listener. The parent context
// bounds all background goroutines.
//
// Returns:
//   - error: Currently always nil; listener failures are logged
func (s *Server) Start(ctx context.Context) error {
	hubCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(hubCtx)

	// Every cache refresh fans out to subscribed WebSocket clients.
	for _, session := range s.registry.List() {
		session.OnUpdate(func(endpoint skylight.Endpoint, snap skylight.Snapshot) {
			s.hub.Broadcast(ChannelStatusUpdated, lampEvent{
				LampID:    endpoint.ID,
				Name:      endpoint.Name,
				Seq:       snap.Seq,
				UpdatedAt: snap.UpdatedAt,
				Status:    snap.Status,
			})
		})
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("api server listening", "addr", addr, "tls", s.cfg.TLS.Enabled)

		var err error
		if s.cfg.TLS.Enabled {
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight
// requests up to gracefulShutdownTimeout.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// lampEvent is the payload broadcast on the status update channel.
type lampEvent struct {
	LampID    string                `json:"lamp_id"`
	Name      string                `json:"name,omitempty"`
	Seq       uint64                `json:"seq"`
	UpdatedAt time.Time             `json:"updated_at"`
	Status    skylight.DeviceStatus `json:"status"`
}
