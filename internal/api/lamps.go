package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/skylight-core/internal/skylight"
)

// lampSummary is one row in the lamp list response.
type lampSummary struct {
	ID                  string     `json:"id"`
	Host                string     `json:"host"`
	Name                string     `json:"name,omitempty"`
	Fresh               bool       `json:"fresh"`
	Seq                 uint64     `json:"seq,omitempty"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// session resolves the {id} URL parameter to a lamp session, writing
// the error response itself when the lamp is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*skylight.Session, bool) {
	id := chi.URLParam(r, "id")
	session, err := s.registry.Get(id)
	if err != nil {
		writeEngineError(w, err)
		return nil, false
	}
	return session, true
}

// decodeBody decodes a JSON request body into v, writing the 400
// response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// writeResult writes a successful command result.
func writeResult(w http.ResponseWriter, result skylight.CommandResult) {
	writeJSON(w, http.StatusOK, result)
}

// handleListLamps returns all configured lamps with cache freshness.
func (s *Server) handleListLamps(w http.ResponseWriter, _ *http.Request) {
	sessions := s.registry.List()
	lamps := make([]lampSummary, 0, len(sessions))
	for _, session := range sessions {
		endpoint := session.Endpoint()
		summary := lampSummary{
			ID:                  endpoint.ID,
			Host:                endpoint.Host,
			Name:                endpoint.Name,
			ConsecutiveFailures: session.ConsecutiveFailures(),
		}
		if snap, fresh := session.Current(); snap.Seq > 0 {
			summary.Fresh = fresh
			summary.Seq = snap.Seq
			updatedAt := snap.UpdatedAt
			summary.UpdatedAt = &updatedAt
		}
		lamps = append(lamps, summary)
	}
	writeJSON(w, http.StatusOK, map[string]any{"lamps": lamps, "count": len(lamps)})
}

// handleGetStatus returns the cached snapshot for a lamp, or forces a
// poll first when ?force=true.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"
	snap, err := session.Status(r.Context(), force)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	_, fresh := session.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"lamp_id":  session.Endpoint().ID,
		"fresh":    fresh,
		"snapshot": snap,
	})
}

// handleSetChannel sets one PWM channel to a target percentage.
func (s *Server) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Channel int     `json:"channel"`
		Value   float64 `json:"value"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := session.SetChannel(r.Context(), body.Channel, body.Value)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleSetChannels sets all four PWM channels plus colour and intensity.
func (s *Server) handleSetChannels(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Values    [4]float64 `json:"values"`
		ColorCode int        `json:"color_code"`
		Intensity *float64   `json:"intensity"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	intensity := 100.0
	if body.Intensity != nil {
		intensity = *body.Intensity
	}

	result, err := session.SetAllChannels(r.Context(), body.Values, body.ColorCode, intensity)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleReadPWMFrequency reads the current PWM frequency from the lamp.
func (s *Server) handleReadPWMFrequency(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := session.ReadPWMFrequency(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleSetPWMFrequency sets the PWM base frequency in Hz.
func (s *Server) handleSetPWMFrequency(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Hz int `json:"hz"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := session.SetPWMFrequency(r.Context(), body.Hz)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleInitPWM reinitialises the lamp's PWM hardware.
func (s *Server) handleInitPWM(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := session.InitPWM(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleSyncRTC synchronises the lamp clock. An optional RFC 3339
// timestamp overrides the server's current time.
func (s *Server) handleSyncRTC(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Timestamp string `json:"timestamp"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &body) {
		return
	}

	var ts time.Time
	if body.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, body.Timestamp)
		if err != nil {
			writeBadRequest(w, "timestamp must be RFC 3339")
			return
		}
		ts = parsed
	}

	result, err := session.SyncRTC(r.Context(), ts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleSetTimezone sets the lamp's timezone offset.
func (s *Server) handleSetTimezone(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Timezone string `json:"timezone"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := session.SetTimezone(r.Context(), body.Timezone)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleSetNightMode toggles the lamp's night mode.
func (s *Server) handleSetNightMode(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := session.SetNightMode(r.Context(), body.Enabled)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleManualMode switches the manual override window.
//
// Body: {"duration": "1h"} for a one-hour override or
// {"duration": "default"} for the firmware default window.
func (s *Server) handleManualMode(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Duration string `json:"duration"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	var (
		result skylight.CommandResult
		err    error
	)
	switch body.Duration {
	case "1h":
		result, err = session.ManualMode1h(r.Context())
	case "default":
		result, err = session.ManualModeDefault(r.Context())
	default:
		writeBadRequest(w, `duration must be "1h" or "default"`)
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleSetMode switches the lamp operating mode (off/manual/auto/demo).
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Mode string `json:"mode"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := session.SetMode(r.Context(), body.Mode)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleApplyPreset applies a spectrum preset at an optional power level.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Preset string `json:"preset"`
		Power  *int   `json:"power"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	power := -1
	if body.Power != nil {
		power = *body.Power
	}

	result, err := session.ApplyPreset(r.Context(), body.Preset, power)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleSetPower re-applies the selected preset at a new power level.
func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Power int `json:"power"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := session.SetPower(r.Context(), body.Power)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleReadSchedule reads the stored schedule back from the lamp and
// decodes it with the variant named in the ?variant= query parameter.
func (s *Server) handleReadSchedule(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	variant, err := skylight.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	sched, err := session.ReadSchedule(r.Context(), variant)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// handleWriteSchedule replaces the lamp's stored schedule. The body is
// validated and encoded before any device traffic happens.
func (s *Server) handleWriteSchedule(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var sched skylight.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		if errors.Is(err, skylight.ErrValidation) {
			writeEngineError(w, err)
		} else {
			writeBadRequest(w, "invalid JSON body")
		}
		return
	}

	result, err := session.WriteSchedule(r.Context(), &sched)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleClearSchedule wipes the lamp's stored schedule.
func (s *Server) handleClearSchedule(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := session.ClearSchedule(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleAddClone registers a clone lamp by MAC address.
func (s *Server) handleAddClone(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		MAC string `json:"mac"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := session.AddClone(r.Context(), body.MAC)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleRemoveClone unregisters a clone lamp by MAC address.
func (s *Server) handleRemoveClone(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := session.RemoveClone(r.Context(), chi.URLParam(r, "mac"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleSetCloneMode puts the lamp into clone (follower) mode.
func (s *Server) handleSetCloneMode(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := session.SetCloneMode(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleClearMasterClone clears the lamp's master/clone pairing.
func (s *Server) handleClearMasterClone(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := session.ClearMasterClone(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleRawCommand passes a raw params or ctrl string through to the
// lamp. Exactly one of the two must be set.
func (s *Server) handleRawCommand(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Params string `json:"params"`
		Ctrl   string `json:"ctrl"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := session.SendRaw(r.Context(), body.Params, body.Ctrl)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}

// handleDiagnostics runs one of the read-only diagnostic probes.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		result skylight.CommandResult
		err    error
	)
	switch probe := chi.URLParam(r, "probe"); probe {
	case "description":
		result, err = session.ReadDescription(r.Context())
	case "led-status":
		result, err = session.ReadLEDStatus(r.Context())
	case "schedule-status":
		result, err = session.ReadScheduleStatus(r.Context())
	case "schedule-string":
		result, err = session.ReadScheduleString(r.Context())
	case "info-g8":
		result, err = session.ReadInfoG8(r.Context())
	case "firmware":
		result, err = session.FirmwareVersion(r.Context())
	default:
		writeNotFound(w, "unknown diagnostic probe")
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeResult(w, result)
}
