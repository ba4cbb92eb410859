// internal/app/features/idcard/routes.go
package idcard

import (
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /idcard.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.With(sm.RequireRole(models.RoleParent)).Get("/", h.ServeCards)
	r.With(sm.RequireRole(models.RoleParent, models.RoleAdmin)).Get("/{id}/qr.png", h.ServeQR)
	return r
}
