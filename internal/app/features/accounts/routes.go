// internal/app/features/accounts/routes.go
package accounts

import (
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /accounts. Admins only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.ServeUpdate)
	return r
}
