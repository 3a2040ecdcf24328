package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/conductor-ai/conductor/internal/orchestrator"
	"github.com/conductor-ai/conductor/internal/provider"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes the error message verbatim with a status derived from
// the error kind.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
}

// statusFor maps the core error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var te *provider.TransportError
	switch {
	case errors.Is(err, orchestrator.ErrUnknownProvider),
		errors.Is(err, orchestrator.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, provider.ErrSessionNotActive),
		errors.Is(err, provider.ErrMultilineInput):
		return http.StatusConflict
	case errors.Is(err, provider.ErrStartFailed), errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
