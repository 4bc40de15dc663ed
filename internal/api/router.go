package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/lamps", func(r chi.Router) {
			r.Get("/", s.handleListLamps)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/status", s.handleGetStatus)

				r.Post("/channel", s.handleSetChannel)
				r.Post("/channels", s.handleSetChannels)

				r.Route("/pwm", func(r chi.Router) {
					r.Get("/frequency", s.handleReadPWMFrequency)
					r.Post("/frequency", s.handleSetPWMFrequency)
					r.Post("/init", s.handleInitPWM)
				})

				r.Post("/rtc/sync", s.handleSyncRTC)
				r.Post("/timezone", s.handleSetTimezone)
				r.Post("/night-mode", s.handleSetNightMode)
				r.Post("/manual-mode", s.handleManualMode)
				r.Post("/mode", s.handleSetMode)
				r.Post("/preset", s.handleApplyPreset)
				r.Post("/power", s.handleSetPower)

				r.Route("/schedule", func(r chi.Router) {
					r.Get("/", s.handleReadSchedule)
					r.Put("/", s.handleWriteSchedule)
					r.Delete("/", s.handleClearSchedule)
				})

				r.Post("/clones", s.handleAddClone)
				r.Delete("/clones/{mac}", s.handleRemoveClone)
				r.Post("/clone-mode", s.handleSetCloneMode)
				r.Delete("/clone", s.handleClearMasterClone)

				r.Post("/raw", s.handleRawCommand)
				r.Get("/diagnostics/{probe}", s.handleDiagnostics)
			})
		})
	})

	// WebSocket endpoint
	r.Get(s.wsPath(), s.handleWebSocket)

	return r
}

// wsPath returns the configured WebSocket path, defaulting to /ws.
func (s *Server) wsPath() string {
	if s.wsCfg.Path != "" {
		return s.wsCfg.Path
	}
	return "/ws"
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"lamps":   s.registry.Count(),
	})
}
