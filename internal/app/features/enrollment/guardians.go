// internal/app/features/enrollment/guardians.go
package enrollment

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/studentid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"github.com/go-chi/chi/v5"
)

// ServeAddGuardian handles POST /enrollments/{id}/guardians. The new entry
// is a non-primary Parent with blank fields; edit it with PATCH.
func (h *Handler) ServeAddGuardian(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	if _, err := f.AddGuardian(h.IDs); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.save(w, r, f, http.StatusCreated)
}

// ServeUpdateGuardian handles PATCH /enrollments/{id}/guardians/{gid}.
func (h *Handler) ServeUpdateGuardian(w http.ResponseWriter, r *http.Request) {
	var p enrollment.GuardianPatch
	if !decode(w, r, &p) {
		return
	}
	p.FullName = htmlsanitize.PlainTextPtr(p.FullName)
	p.Relationship = htmlsanitize.PlainTextPtr(p.Relationship)
	p.PhoneNumber = trimPtr(p.PhoneNumber)
	p.Email = trimPtr(p.Email)

	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	if err := f.UpdateGuardian(chi.URLParam(r, "gid"), p); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.save(w, r, f, http.StatusOK)
}

// ServeRemoveGuardian handles DELETE /enrollments/{id}/guardians/{gid}.
// The caller must pass confirm=true; the last guardian cannot be removed.
func (h *Handler) ServeRemoveGuardian(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	if err := f.RemoveGuardian(chi.URLParam(r, "gid"), confirmed); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.save(w, r, f, http.StatusOK)
}

// ServeTogglePrimary handles POST /enrollments/{id}/guardians/{gid}/primary.
func (h *Handler) ServeTogglePrimary(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	if err := f.TogglePrimary(chi.URLParam(r, "gid")); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.save(w, r, f, http.StatusOK)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
