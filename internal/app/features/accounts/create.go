// internal/app/features/accounts/create.go
package accounts

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"github.com/dalemusser/studentid/internal/domain/models"
	"go.uber.org/zap"
)

type createRequest struct {
	LoginID  string `json:"loginId" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"fullName" validate:"max=200"`
	Role     string `json:"role" validate:"oneof=admin parent"`
}

// ServeCreate handles POST /accounts.
//
// A login ID without "@" gets the login domain appended, the same way
// guardians sign in. Role defaults to parent.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(r)
	if !ok {
		apierrors.RenderUnauthorized(w, r)
		return
	}

	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	req.LoginID = h.loginID(req.LoginID)
	req.FullName = htmlsanitize.PlainText(req.FullName)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.Role == "" {
		req.Role = models.RoleParent
	}
	if err := validate.Struct(req); err != nil {
		renderValidation(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create account")
	defer cancel()

	a, err := h.Accounts.Create(ctx, enrollment.AccountRequest{
		LoginID:  req.LoginID,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	switch {
	case err == nil:
	case errors.Is(err, accountstore.ErrLoginIDInUse):
		apierrors.RenderError(w, http.StatusConflict, "login_id_in_use", "This login ID is already taken.")
		return
	case errors.Is(err, accountstore.ErrPasswordTooShort):
		apierrors.RenderError(w, http.StatusUnprocessableEntity, "invalid_password",
			fmt.Sprintf("Password must be at least %d characters long.", accountstore.MinPasswordLength))
		return
	case errors.Is(err, accountstore.ErrBadRole):
		apierrors.RenderError(w, http.StatusUnprocessableEntity, "invalid_role", "Role must be admin or parent.")
		return
	default:
		h.ErrLog.LogServerError(w, r, "accounts: create", err, "Could not create the account.")
		return
	}

	h.AuditLog.AccountAdded(ctx, r, actorID, a.ID, a.LoginID, a.Role)
	h.Log.Info("account created",
		zap.String("account_id", a.ID.Hex()),
		zap.String("login_id", a.LoginID),
		zap.String("role", a.Role))
	apierrors.WriteJSON(w, http.StatusCreated, a)
}
