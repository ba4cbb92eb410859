// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	"github.com/dalemusser/studentid/internal/app/store/audit"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const pageSize = 50

type eventView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"eventType"`
	UserID        string            `json:"userId,omitempty"`
	ActorID       string            `json:"actorId,omitempty"`
	StudentID     string            `json:"studentId,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failureReason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Events     []eventView `json:"events"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	HasPrev    bool        `json:"hasPrev"`
	HasNext    bool        `json:"hasNext"`
}

// ServeList handles GET /audit with optional filters category, event_type,
// student_id, user_id, success, start_date and end_date (YYYY-MM-DD), and
// page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		StudentID: strings.TrimSpace(q.Get("student_id")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if s := strings.TrimSpace(q.Get("user_id")); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			apierrors.RenderBadRequest(w, r, "user_id must be an account ID.")
			return
		}
		filter.UserID = &id
	}
	if s := q.Get("success"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			apierrors.RenderBadRequest(w, r, "success must be true or false.")
			return
		}
		filter.Success = &b
	}
	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apierrors.RenderBadRequest(w, r, "start_date must be YYYY-MM-DD.")
			return
		}
		filter.StartTime = &t
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apierrors.RenderBadRequest(w, r, "end_date must be YYYY-MM-DD.")
			return
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit: query", err, "A database error occurred.")
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit: count", err, "A database error occurred.")
		return
	}

	items := make([]eventView, 0, len(events))
	for _, e := range events {
		items = append(items, toView(e))
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	apierrors.WriteJSON(w, http.StatusOK, listResponse{
		Events:     items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	})
}

func toView(e audit.Event) eventView {
	v := eventView{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		StudentID:     e.StudentID,
		IP:            e.IP,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.UserID != nil {
		v.UserID = e.UserID.Hex()
	}
	if e.ActorID != nil {
		v.ActorID = e.ActorID.Hex()
	}
	return v
}
