// internal/app/features/accounts/list.go
package accounts

import (
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/system/paging"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Accounts   []models.Account `json:"accounts"`
	Total      int64            `json:"total"`
	HasPrev    bool             `json:"hasPrev"`
	HasNext    bool             `json:"hasNext"`
	PrevCursor string           `json:"prevCursor,omitempty"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// ServeList handles GET /accounts?q=&role=&status=&after=&before=&limit=.
// Unknown role or status values answer 400.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := accountstore.ListQuery{
		Search: strings.TrimSpace(q.Get("q")),
		Role:   strings.ToLower(strings.TrimSpace(q.Get("role"))),
		Status: strings.ToLower(strings.TrimSpace(q.Get("status"))),
		After:  q.Get("after"),
		Before: q.Get("before"),
		Limit:  paging.ParseLimit(q.Get("limit")),
	}
	switch lq.Role {
	case "", models.RoleAdmin, models.RoleParent:
	default:
		apierrors.RenderBadRequest(w, r, "role must be admin or parent.")
		return
	}
	switch lq.Status {
	case "", models.StatusActive, models.StatusDisabled:
	default:
		apierrors.RenderBadRequest(w, r, "status must be active or disabled.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list accounts")
	defer cancel()

	page, err := h.Accounts.List(ctx, lq)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "accounts: list", err, "Could not load accounts.")
		return
	}
	if page.Accounts == nil {
		page.Accounts = []models.Account{}
	}
	resp := listResponse{
		Accounts: page.Accounts,
		Total:    page.Total,
		HasPrev:  page.HasPrev,
		HasNext:  page.HasNext,
	}
	if page.HasPrev {
		resp.PrevCursor = page.PrevCursor
	}
	if page.HasNext {
		resp.NextCursor = page.NextCursor
	}
	apierrors.WriteJSON(w, http.StatusOK, resp)
}

// ServeView handles GET /accounts/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.RenderNotFound(w, r, "Account not found.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "view account")
	defer cancel()

	a, err := h.Accounts.GetByID(ctx, id)
	if errors.Is(err, accountstore.ErrNotFound) {
		apierrors.RenderNotFound(w, r, "Account not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "accounts: view", err, "Could not load the account.")
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, a)
}
