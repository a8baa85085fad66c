package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError maps the domain error taxonomy onto HTTP statuses. Internal
// errors are logged in full and surfaced generically.
func respondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()

	var status int
	switch kind {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Forbidden:
		status = http.StatusForbidden
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.InvalidInput:
		status = http.StatusBadRequest
	case apperr.InsufficientFunds:
		status = http.StatusUnprocessableEntity
	case apperr.ExternalService:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		slog.Error("internal error", "error", err)
		msg = "internal server error"
	}

	respondJSON(w, status, map[string]string{"error": msg, "code": kind.String()})
}
