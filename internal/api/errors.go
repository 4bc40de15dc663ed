package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/skylight-core/internal/skylight"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeLampRejected = "lamp_rejected"
	ErrCodeLampTimeout  = "lamp_timeout"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeEngineError maps an engine error onto an HTTP response.
//
// Validation and codec failures are the caller's fault (400), an
// unknown lamp id is 404, a closed session is a conflict (409), an
// explicit firmware rejection or unexpected HTTP status from the lamp
// is a bad gateway (502), and any other transport failure means the
// lamp could not be reached in time (504).
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, skylight.ErrValidation), errors.Is(err, skylight.ErrCodec):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, skylight.ErrUnknownLamp):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, skylight.ErrSessionClosed):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, skylight.ErrDeviceRejected), errors.Is(err, skylight.ErrHTTPStatus):
		writeError(w, http.StatusBadGateway, ErrCodeLampRejected, err.Error())
	case errors.Is(err, skylight.ErrTransport):
		writeError(w, http.StatusGatewayTimeout, ErrCodeLampTimeout, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
