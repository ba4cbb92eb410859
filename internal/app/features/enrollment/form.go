// internal/app/features/enrollment/form.go
package enrollment

import (
	"net/http"
	"sort"
	"strings"
	"time"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	"github.com/dalemusser/studentid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServeCreate handles POST /enrollments: a fresh form at the first step with
// one primary Parent guardian.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	f := enrollment.NewForm(uuid.NewString(), h.IDs)
	h.save(w, r, f, http.StatusCreated)
}

// formSummary is one row of ServeList.
type formSummary struct {
	ID          string            `json:"id"`
	StudentName string            `json:"studentName"`
	Step        enrollment.Step   `json:"step"`
	Status      enrollment.Status `json:"status"`
	Guardians   int               `json:"guardians"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// ServeList handles GET /enrollments: every live draft, most recently
// touched first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list drafts")
	defer cancel()

	ids, err := h.Drafts.IDs(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "enrollment: list drafts", err, "Could not list enrollment forms.")
		return
	}
	out := make([]formSummary, 0, len(ids))
	for _, id := range ids {
		f, err := h.Drafts.Get(ctx, id)
		if err != nil {
			// Expired between SCAN and GET, or unreadable.
			h.Log.Debug("skipping draft", zap.String("form_id", id), zap.Error(err))
			continue
		}
		out = append(out, formSummary{
			ID:          f.ID,
			StudentName: f.Student.FullName,
			Step:        f.Step,
			Status:      f.Status,
			Guardians:   len(f.Guardians),
			UpdatedAt:   f.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })

	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"forms": out})
}

// ServeGet handles GET /enrollments/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	f, ok := h.load(w, r)
	if !ok {
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, f)
}

// ServeDiscard handles DELETE /enrollments/{id}.
func (h *Handler) ServeDiscard(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	if err := h.Drafts.Delete(r.Context(), f.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "enrollment: discard draft", err, "Could not discard the enrollment form.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeReset handles POST /enrollments/{id}/reset.
func (h *Handler) ServeReset(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	f.Reset(h.IDs)
	h.save(w, r, f, http.StatusOK)
}

// studentRequest is the body of PATCH /enrollments/{id}/student. Dates are
// YYYY-MM-DD or RFC 3339.
type studentRequest struct {
	FullName     *string `json:"fullName"`
	ClassName    *string `json:"className"`
	StudentID    *string `json:"studentId"`
	DateOfBirth  *string `json:"dateOfBirth"`
	ProfileImage *string `json:"profileImage"`
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ServeUpdateStudent handles PATCH /enrollments/{id}/student.
func (h *Handler) ServeUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if !decode(w, r, &req) {
		return
	}
	patch := enrollment.StudentPatch{
		FullName:     htmlsanitize.PlainTextPtr(req.FullName),
		ClassName:    htmlsanitize.PlainTextPtr(req.ClassName),
		ProfileImage: req.ProfileImage,
	}
	if req.StudentID != nil {
		sid := strings.TrimSpace(*req.StudentID)
		patch.StudentID = &sid
	}
	if req.DateOfBirth != nil {
		dob, ok := parseDate(*req.DateOfBirth)
		if !ok {
			apierrors.RenderBadRequest(w, r, "dateOfBirth must be YYYY-MM-DD.")
			return
		}
		patch.DateOfBirth = &dob
	}

	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	f.UpdateStudent(patch)
	h.save(w, r, f, http.StatusOK)
}

// ServeNext handles POST /enrollments/{id}/next. The current step is
// validated; on failure the form is unchanged and the field errors are
// returned with 422.
func (h *Handler) ServeNext(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	if res := f.Next(); res.HasErrors() {
		h.renderError(w, r, &enrollment.ValidationError{Result: res})
		return
	}
	h.save(w, r, f, http.StatusOK)
}

// ServeBack handles POST /enrollments/{id}/back.
func (h *Handler) ServeBack(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	f.Back()
	h.save(w, r, f, http.StatusOK)
}

// ServeGoTo handles POST /enrollments/{id}/goto with {"step": n}; only
// steps already reached may be opened.
func (h *Handler) ServeGoTo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step *enrollment.Step `json:"step"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Step == nil {
		apierrors.RenderBadRequest(w, r, "step is required.")
		return
	}
	f, ok := h.loadEditable(w, r)
	if !ok {
		return
	}
	if err := f.GoTo(*req.Step); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.save(w, r, f, http.StatusOK)
}

// reviewView is the read-only summary shown before submitting.
type reviewView struct {
	ID         string                `json:"id"`
	Student    enrollment.Student    `json:"student"`
	Guardians  []enrollment.Guardian `json:"guardians"`
	Validation enrollment.Result     `json:"validation"`
	Ready      bool                  `json:"ready"`
}

// ServeReview handles GET /enrollments/{id}/review. Guardians missing a
// name or phone are left out; Validation covers the whole form.
func (h *Handler) ServeReview(w http.ResponseWriter, r *http.Request) {
	f, ok := h.load(w, r)
	if !ok {
		return
	}
	res := enrollment.ValidateAll(f)
	apierrors.WriteJSON(w, http.StatusOK, reviewView{
		ID:         f.ID,
		Student:    f.Student,
		Guardians:  f.Review(),
		Validation: res,
		Ready:      res.OK() && f.Submittable() == nil,
	})
}

// ServeSchema handles GET /enrollments/schema: the step list and limits a
// client needs to drive the wizard.
func (h *Handler) ServeSchema(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"steps":               enrollment.Steps,
		"maxGuardians":        enrollment.MaxGuardians,
		"maxPrimaryGuardians": enrollment.MaxPrimaryGuardians,
		"relationships":       models.Relationships,
	})
}
