// internal/app/features/enrollment/routes.go
package enrollment

import (
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /enrollments. Admins only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	r.Get("/schema", h.ServeSchema)

	r.Route("/{id}", func(fr chi.Router) {
		fr.Get("/", h.ServeGet)
		fr.Delete("/", h.ServeDiscard)
		fr.Post("/reset", h.ServeReset)
		fr.Patch("/student", h.ServeUpdateStudent)

		fr.Post("/guardians", h.ServeAddGuardian)
		fr.Patch("/guardians/{gid}", h.ServeUpdateGuardian)
		fr.Delete("/guardians/{gid}", h.ServeRemoveGuardian)
		fr.Post("/guardians/{gid}/primary", h.ServeTogglePrimary)

		fr.Post("/next", h.ServeNext)
		fr.Post("/back", h.ServeBack)
		fr.Post("/goto", h.ServeGoTo)
		fr.Get("/review", h.ServeReview)
		fr.Post("/submit", h.ServeSubmit)
	})

	return r
}
