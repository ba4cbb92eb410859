// internal/app/features/errors/errors.go
package errors

import (
	"net/http"
)

// Handler serves the fallback error routes.
// No DB needed; it only writes JSON.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	RenderNotFound(w, r, "No such endpoint.")
}

// MethodNotAllowed answers a known route called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	RenderError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed.")
}
