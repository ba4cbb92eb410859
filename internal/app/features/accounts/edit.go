// internal/app/features/accounts/edit.go
package accounts

import (
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type updateRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,max=200"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin parent"`
	Status   *string `json:"status" validate:"omitempty,oneof=active disabled"`
}

// ServeUpdate handles PATCH /accounts/{id}.
//
// An admin cannot disable or demote their own account, and no change may
// leave the system without an active admin.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(r)
	if !ok {
		apierrors.RenderUnauthorized(w, r)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.RenderNotFound(w, r, "Account not found.")
		return
	}

	var req updateRequest
	if !decode(w, r, &req) {
		return
	}
	req.FullName = htmlsanitize.PlainTextPtr(req.FullName)
	req.Role = lower(req.Role)
	req.Status = lower(req.Status)
	if err := validate.Struct(req); err != nil {
		renderValidation(w, err)
		return
	}

	if id == actorID {
		if (req.Status != nil && *req.Status != models.StatusActive) || (req.Role != nil && *req.Role != models.RoleAdmin) {
			apierrors.RenderError(w, http.StatusConflict, "self_change",
				"You can't disable or demote your own account. Ask another admin.")
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update account")
	defer cancel()

	a, err := h.Accounts.Update(ctx, id, accountstore.Patch{
		FullName: req.FullName,
		Role:     req.Role,
		Status:   req.Status,
	})
	switch {
	case err == nil:
	case errors.Is(err, accountstore.ErrNotFound):
		apierrors.RenderNotFound(w, r, "Account not found.")
		return
	case errors.Is(err, accountstore.ErrLastAdmin):
		apierrors.RenderError(w, http.StatusConflict, "last_admin", "There must be at least one active admin.")
		return
	case errors.Is(err, accountstore.ErrEmptyName):
		apierrors.RenderError(w, http.StatusUnprocessableEntity, "validation_failed", "Full name is required.")
		return
	default:
		h.ErrLog.LogServerError(w, r, "accounts: update", err, "Could not update the account.")
		return
	}

	if changes := req.changes(); len(changes) > 0 {
		h.AuditLog.AccountUpdated(ctx, r, actorID, a.ID, changes)
	}
	apierrors.WriteJSON(w, http.StatusOK, a)
}

func (req updateRequest) changes() map[string]string {
	out := map[string]string{}
	if req.FullName != nil {
		out["full_name"] = *req.FullName
	}
	if req.Role != nil {
		out["role"] = *req.Role
	}
	if req.Status != nil {
		out["status"] = *req.Status
	}
	return out
}

func lower(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	return &v
}
