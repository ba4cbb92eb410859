// internal/app/features/enrollment/submit.go
package enrollment

import (
	"context"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/app/system/metrics"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// submitResponse pairs the outcome with the re-initialized form, ready for
// the next enrollment.
type submitResponse struct {
	Outcome *enrollment.Outcome `json:"outcome"`
	Form    *enrollment.Form    `json:"form"`
}

// ServeSubmit handles POST /enrollments/{id}/submit.
//
// The form must be at the review step. A second submit while one is running
// gets 409. On success the draft is reset in place and returned with the
// outcome. On failure the draft keeps its data with status "failed"; any
// guardian accounts already created are listed in the error details and are
// not removed.
func (h *Handler) ServeSubmit(w http.ResponseWriter, r *http.Request) {
	f, ok := h.load(w, r)
	if !ok {
		return
	}

	lockCtx, cancelLock := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submit lock")
	lock, err := h.Lock.Acquire(lockCtx, f.ID)
	cancelLock()
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer func() {
		// Release on a fresh context: the request may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
		defer cancel()
		if _, err := lock.Release(ctx); err != nil {
			h.Log.Warn("release submit lock", zap.String("form_id", f.ID), zap.Error(err))
		}
	}()

	// We hold the lock, so a stored "submitting" status is left over from a
	// run that died before writing its result.
	if f.Status == enrollment.StatusSubmitting {
		h.Log.Warn("clearing interrupted submission", zap.String("form_id", f.ID))
		f.Status = enrollment.StatusFailed
	}
	if err := f.Submittable(); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.markSubmitting(r.Context(), f)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Submit(), h.Log, "enrollment submit")
	defer cancel()

	actor := actorID(r)
	start := time.Now()
	outcome, err := h.Submitter.Submit(ctx, f)
	if err != nil {
		h.recordFailure(r, actor, f, err, time.Since(start))
		h.persistAfterSubmit(w, r, f, func() { h.renderError(w, r, err) })
		return
	}

	h.Metrics.ObserveSubmit(metrics.OutcomeSucceeded, len(outcome.Guardians), time.Since(start))
	for _, g := range outcome.Guardians {
		h.AuditLog.AccountCreated(r.Context(), r, actor, g.AccountID, g.LoginID, outcome.StudentID)
	}
	h.AuditLog.EnrollmentSucceeded(r.Context(), r, actor, outcome.StudentID, outcome.StudentDocID, len(outcome.Guardians))

	f.Reset(h.IDs)
	h.persistAfterSubmit(w, r, f, func() {
		apierrors.WriteJSON(w, http.StatusCreated, submitResponse{Outcome: outcome, Form: f})
	})
}

// markSubmitting stores a copy of f with status "submitting" so readers see
// the run. Failure only costs that visibility.
func (h *Handler) markSubmitting(ctx context.Context, f *enrollment.Form) {
	cp := *f
	cp.Status = enrollment.StatusSubmitting
	cp.UpdatedAt = h.IDs.Now().UTC()
	if err := h.Drafts.Save(ctx, &cp); err != nil {
		h.Log.Warn("mark draft submitting", zap.String("form_id", f.ID), zap.Error(err))
	}
}

// persistAfterSubmit stores the post-submit form, then calls respond. The
// submission already happened, so a failed save is logged, not returned.
func (h *Handler) persistAfterSubmit(w http.ResponseWriter, r *http.Request, f *enrollment.Form, respond func()) {
	f.UpdatedAt = h.IDs.Now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Short())
	defer cancel()
	if err := h.Drafts.Save(ctx, f); err != nil {
		h.Log.Error("save draft after submit", zap.String("form_id", f.ID), zap.Error(err))
	}
	respond()
}

func (h *Handler) recordFailure(r *http.Request, actor primitive.ObjectID, f *enrollment.Form, err error, took time.Duration) {
	var (
		verr      *enrollment.ValidationError
		perr      *enrollment.ProvisioningError
		commitErr *enrollment.CommitError
	)
	outcome := metrics.OutcomeError
	var provisioned []enrollment.ProvisionedGuardian
	switch {
	case errors.As(err, &verr):
		outcome = metrics.OutcomeValidation
	case errors.As(err, &perr):
		outcome = metrics.OutcomeProvision
		provisioned = perr.Provisioned
	case errors.As(err, &commitErr):
		outcome = metrics.OutcomeCommit
		provisioned = commitErr.Provisioned
	}
	h.Metrics.ObserveSubmit(outcome, len(provisioned), took)

	studentID := f.Student.StudentID
	if commitErr != nil {
		studentID = commitErr.StudentID
	}
	logins := make([]string, len(provisioned))
	for i, p := range provisioned {
		logins[i] = p.LoginID
		h.AuditLog.AccountCreated(r.Context(), r, actor, p.AccountID, p.LoginID, studentID)
	}
	h.AuditLog.EnrollmentFailed(r.Context(), r, actor, studentID, err.Error(), logins)
}

func actorID(r *http.Request) primitive.ObjectID {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
