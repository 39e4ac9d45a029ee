// Package http provides the HTTP server and handler implementations.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"kharcha/internal/core"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeFieldErrors reports validation failures as 422 with a per-field map
// so the client can highlight individual inputs.
func writeFieldErrors(w http.ResponseWriter, ferrs core.FieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{
		Error:  "Validation failed.",
		Fields: ferrs,
	})
}
