// Package httputil writes the JSON bodies shared by the HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/stature/internal/monitoring"
)

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("failed to encode json response: %v", err)
	}
}

// WriteError writes an ErrorResponse. code is a stable machine-readable
// identifier such as "not_found"; message is for humans.
func WriteError(w http.ResponseWriter, code, message string, status int) {
	WriteJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// BadRequest writes a 400 with code "invalid_request".
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, "invalid_request", message, http.StatusBadRequest)
}

// NotFound writes a 404 with code "not_found".
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, "not_found", message, http.StatusNotFound)
}

// InternalServerError writes a 500 with the given code.
func InternalServerError(w http.ResponseWriter, code, message string) {
	WriteError(w, code, message, http.StatusInternalServerError)
}
