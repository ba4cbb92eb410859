// internal/app/features/password/handler.go
package password

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/system/auditlog"
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Accounts   *accountstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	ErrLog     *apierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(accounts *accountstore.Store, sm *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   accounts,
		SessionMgr: sm,
		AuditLog:   audit,
		ErrLog:     apierrors.NewErrorLogger(logger),
		Log:        logger,
	}
}

type changeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ServeChange handles POST /password. Guardians land here first: their
// accounts start with the default password.
func (h *Handler) ServeChange(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierrors.RenderUnauthorized(w, r)
		return
	}
	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		apierrors.RenderUnauthorized(w, r)
		return
	}

	var req changeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.RenderBadRequest(w, r, "Request body must be JSON.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "password change")
	defer cancel()

	err = h.Accounts.ChangePassword(ctx, uid, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, accountstore.ErrPasswordTooShort), errors.Is(err, accountstore.ErrSamePassword):
		apierrors.RenderError(w, http.StatusUnprocessableEntity, "invalid_password", capitalize(err.Error()))
		return
	case errors.Is(err, accountstore.ErrWrongPassword):
		apierrors.RenderError(w, http.StatusUnprocessableEntity, "wrong_password", "Current password is incorrect.")
		return
	case errors.Is(err, accountstore.ErrNotFound):
		apierrors.RenderUnauthorized(w, r)
		return
	default:
		h.ErrLog.LogServerError(w, r, "password: change", err, "Could not change password.")
		return
	}

	h.AuditLog.PasswordChanged(ctx, r, uid, u.MustChangePassword)
	if u.MustChangePassword {
		if err := h.SessionMgr.ClearMustChangePassword(w, r); err != nil {
			h.Log.Warn("password: clear session flag", zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b) + "."
}
