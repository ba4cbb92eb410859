// internal/app/features/enrollment/handler.go
package enrollment

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	draftstore "github.com/dalemusser/studentid/internal/app/store/drafts"
	"github.com/dalemusser/studentid/internal/app/system/auditlog"
	"github.com/dalemusser/studentid/internal/app/system/metrics"
	"github.com/dalemusser/studentid/internal/app/system/submitlock"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the admin enrollment wizard. Forms live in the draft store
// between requests; submission runs under a per-form lock.
type Handler struct {
	Drafts    *draftstore.Store
	Lock      *submitlock.Locker
	Submitter *enrollment.Submitter
	IDs       *enrollment.Generator
	AuditLog  *auditlog.Logger
	Metrics   *metrics.Metrics
	ErrLog    *apierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(
	drafts *draftstore.Store,
	lock *submitlock.Locker,
	submitter *enrollment.Submitter,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Drafts:    drafts,
		Lock:      lock,
		Submitter: submitter,
		IDs:       submitter.IDs,
		AuditLog:  audit,
		Metrics:   m,
		ErrLog:    apierrors.NewErrorLogger(logger),
		Log:       logger,
	}
}

// load fetches the form named by the {id} URL parameter. On failure it has
// already written the response.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*enrollment.Form, bool) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load draft")
	defer cancel()

	f, err := h.Drafts.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, draftstore.ErrNotFound) {
			apierrors.RenderNotFound(w, r, "Enrollment form not found or expired.")
			return nil, false
		}
		h.ErrLog.LogServerError(w, r, "enrollment: load draft", err, "Could not load the enrollment form.")
		return nil, false
	}
	return f, true
}

// loadEditable is load plus a refusal while a submission is running.
func (h *Handler) loadEditable(w http.ResponseWriter, r *http.Request) (*enrollment.Form, bool) {
	f, ok := h.load(w, r)
	if !ok {
		return nil, false
	}
	if f.Status != enrollment.StatusSubmitting {
		return f, true
	}
	held, err := h.Lock.Held(r.Context(), f.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "enrollment: check submit lock", err, "Could not load the enrollment form.")
		return nil, false
	}
	if held {
		h.renderError(w, r, enrollment.ErrSubmissionInFlight)
		return nil, false
	}
	return f, true
}

// save stamps and stores f, then writes it as the response.
func (h *Handler) save(w http.ResponseWriter, r *http.Request, f *enrollment.Form, status int) {
	f.UpdatedAt = h.IDs.Now().UTC()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "save draft")
	defer cancel()
	if err := h.Drafts.Save(ctx, f); err != nil {
		h.ErrLog.LogServerError(w, r, "enrollment: save draft", err, "Could not save the enrollment form.")
		return
	}
	apierrors.WriteJSON(w, status, f)
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		apierrors.RenderBadRequest(w, r, "Malformed JSON body: "+err.Error())
		return false
	}
	return true
}

// renderError maps workflow errors onto status codes.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr      *enrollment.ValidationError
		cerr      *enrollment.CapacityError
		perr      *enrollment.ProvisioningError
		commitErr *enrollment.CommitError
	)
	switch {
	case errors.As(err, &verr):
		apierrors.RenderErrorDetails(w, http.StatusUnprocessableEntity, "validation_failed", verr.Result.First(), verr.Result.Errors)
	case errors.As(err, &cerr):
		apierrors.RenderError(w, http.StatusConflict, "capacity", cerr.Message)
	case errors.Is(err, enrollment.ErrConfirmationRequired):
		apierrors.RenderError(w, http.StatusConflict, "confirmation_required", "Removing a guardian requires confirm=true.")
	case errors.Is(err, enrollment.ErrGuardianNotFound):
		apierrors.RenderNotFound(w, r, "Guardian not found.")
	case errors.Is(err, enrollment.ErrSubmissionInFlight), errors.Is(err, submitlock.ErrHeld):
		apierrors.RenderError(w, http.StatusConflict, "in_flight", "A submission for this form is already in progress.")
	case errors.Is(err, enrollment.ErrAlreadySubmitted):
		apierrors.RenderError(w, http.StatusConflict, "already_submitted", "This form has already been submitted.")
	case errors.Is(err, enrollment.ErrNotAtReview):
		apierrors.RenderError(w, http.StatusConflict, "not_at_review", "Review the form before submitting.")
	case errors.Is(err, enrollment.ErrInvalidStep):
		apierrors.RenderError(w, http.StatusUnprocessableEntity, "invalid_step", "That step cannot be opened yet.")
	case errors.As(err, &perr):
		code, status := "provisioning_failed", http.StatusBadGateway
		if errors.Is(err, enrollment.ErrLoginIDInUse) {
			code, status = "login_id_in_use", http.StatusConflict
		}
		apierrors.RenderErrorDetails(w, status, code, perr.Error(), failureDetails{
			GuardianIndex: &perr.Index,
			LoginID:       perr.LoginID,
			Provisioned:   perr.Provisioned,
		})
	case errors.As(err, &commitErr):
		apierrors.RenderErrorDetails(w, http.StatusBadGateway, "commit_failed", commitErr.Error(), failureDetails{
			StudentID:   commitErr.StudentID,
			Provisioned: commitErr.Provisioned,
		})
	default:
		h.ErrLog.LogServerError(w, r, "enrollment: unexpected error", err, "Something went wrong.")
	}
}

// failureDetails tells an operator which accounts exist after a failed
// submission.
type failureDetails struct {
	GuardianIndex *int                             `json:"guardianIndex,omitempty"`
	LoginID       string                           `json:"loginId,omitempty"`
	StudentID     string                           `json:"studentId,omitempty"`
	Provisioned   []enrollment.ProvisionedGuardian `json:"provisioned"`
}
