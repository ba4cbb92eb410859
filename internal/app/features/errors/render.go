// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	"net/http"
)

// Body is the JSON shape of every error response.
type Body struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RenderError writes an error Body.
func RenderError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, Body{Code: code, Error: msg})
}

// RenderErrorDetails writes an error Body carrying structured details, such
// as field errors or the accounts created before a failure.
func RenderErrorDetails(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, Body{Code: code, Error: msg, Details: details})
}

func RenderBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	RenderError(w, http.StatusBadRequest, "bad_request", msg)
}

func RenderNotFound(w http.ResponseWriter, r *http.Request, msg string) {
	if msg == "" {
		msg = "Not found."
	}
	RenderError(w, http.StatusNotFound, "not_found", msg)
}

func RenderUnauthorized(w http.ResponseWriter, r *http.Request) {
	RenderError(w, http.StatusUnauthorized, "unauthorized", "Sign in required.")
}

func RenderForbidden(w http.ResponseWriter, r *http.Request, msg string) {
	if msg == "" {
		msg = "You don't have permission to do that."
	}
	RenderError(w, http.StatusForbidden, "forbidden", msg)
}
