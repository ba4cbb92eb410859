// internal/app/features/students/routes.go
package students

import (
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /students. Admins only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)
	r.Post("/scan", h.ServeScan)
	r.Get("/export.csv", h.ServeExportCSV)
	r.Get("/export.xlsx", h.ServeExportXLSX)
	r.Get("/{id}", h.ServeView)
	return r
}
