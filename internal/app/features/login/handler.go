// internal/app/features/login/handler.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) of an account
//   - LoginID / loginID / login_id: The string typed at sign-in

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/system/auditlog"
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/app/system/metrics"
	"github.com/dalemusser/studentid/internal/app/system/ratelimit"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Accounts    *accountstore.Store
	SessionMgr  *auth.SessionManager
	AuditLog    *auditlog.Logger
	Metrics     *metrics.Metrics
	Limiter     *ratelimit.LoginLimiter // nil disables attempt limits
	ErrLog      *apierrors.ErrorLogger
	LoginDomain string // appended to bare registration numbers, e.g. "student-id.app"
	Log         *zap.Logger
}

func NewHandler(
	accounts *accountstore.Store,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	limiter *ratelimit.LoginLimiter,
	loginDomain string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Accounts:    accounts,
		SessionMgr:  sessionMgr,
		AuditLog:    audit,
		Metrics:     m,
		Limiter:     limiter,
		ErrLog:      apierrors.NewErrorLogger(logger),
		LoginDomain: loginDomain,
		Log:         logger,
	}
}

type loginRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

const invalidCredentials = "Invalid login ID or password."

// ServeLogin handles POST /login.
//
// A login ID without "@" that matches no account is retried with
// "@<login domain>" appended, so guardians may type just the part before
// the domain.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.RenderBadRequest(w, r, "Request body must be JSON.")
		return
	}
	loginID := strings.TrimSpace(req.LoginID)
	if loginID == "" || req.Password == "" {
		apierrors.RenderBadRequest(w, r, "Login ID and password are required.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	if !h.allow(ctx, w, r, loginID) {
		return
	}

	acct, err := h.Accounts.Authenticate(ctx, loginID, req.Password)
	if errors.Is(err, accountstore.ErrNotFound) && !strings.Contains(loginID, "@") && h.LoginDomain != "" {
		acct, err = h.Accounts.Authenticate(ctx, loginID+"@"+h.LoginDomain, req.Password)
	}

	switch {
	case err == nil:
	case errors.Is(err, accountstore.ErrNotFound):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, loginID)
		h.Metrics.ObserveLogin("not_found")
		apierrors.RenderError(w, http.StatusUnauthorized, "invalid_credentials", invalidCredentials)
		return
	case errors.Is(err, accountstore.ErrWrongPassword):
		h.AuditLog.LoginFailedWrongPassword(ctx, r, acct.ID, acct.LoginID)
		h.Metrics.ObserveLogin("wrong_password")
		apierrors.RenderError(w, http.StatusUnauthorized, "invalid_credentials", invalidCredentials)
		return
	case errors.Is(err, accountstore.ErrDisabled):
		h.AuditLog.LoginFailedUserDisabled(ctx, r, acct.ID, acct.LoginID)
		h.Metrics.ObserveLogin("disabled")
		apierrors.RenderForbidden(w, r, "This account is disabled.")
		return
	default:
		h.ErrLog.LogServerError(w, r, "login: authenticate", err, "Sign-in failed. Please try again.")
		return
	}

	u := sessionUser(acct)
	if err := h.SessionMgr.Login(w, r, u); err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session", err, "Sign-in failed. Please try again.")
		return
	}
	if h.Limiter != nil {
		if err := h.Limiter.ResetLogin(ctx, loginID); err != nil {
			h.Log.Warn("login: reset rate limit", zap.Error(err))
		}
	}
	h.AuditLog.LoginSuccess(ctx, r, acct.ID, acct.LoginID)
	h.Metrics.ObserveLogin("success")

	apierrors.WriteJSON(w, http.StatusOK, u)
}

// allow applies the attempt limits. When Redis is unreachable the attempt
// goes through; sign-in must not depend on the limiter being up.
func (h *Handler) allow(ctx context.Context, w http.ResponseWriter, r *http.Request, loginID string) bool {
	if h.Limiter == nil {
		return true
	}
	ok, reason, err := h.Limiter.Check(ctx, r, loginID)
	if err != nil {
		h.Log.Warn("login: rate limit check failed", zap.Error(err))
		return true
	}
	if !ok {
		h.AuditLog.LoginFailedRateLimit(ctx, r, loginID)
		h.Metrics.ObserveLogin("rate_limited")
		apierrors.RenderError(w, http.StatusTooManyRequests, "rate_limited", reason)
		return false
	}
	return true
}

// ServeMe handles GET /me: the signed-in user, or 401.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierrors.RenderUnauthorized(w, r)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, u)
}

func sessionUser(a *models.Account) auth.SessionUser {
	return auth.SessionUser{
		ID:                 a.ID.Hex(),
		Name:               a.FullName,
		LoginID:            a.LoginID,
		Role:               a.Role,
		MustChangePassword: a.MustChangePassword,
	}
}
