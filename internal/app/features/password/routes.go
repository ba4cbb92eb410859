// internal/app/features/password/routes.go
package password

import (
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.ServeChange)
	return r
}
