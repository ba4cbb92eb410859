package auditlog_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/studentid/internal/app/features/auditlog"
	"github.com/dalemusser/studentid/internal/app/store/audit"
	"github.com/dalemusser/studentid/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listBody struct {
	Events []struct {
		EventType string `json:"eventType"`
		StudentID string `json:"studentId"`
		UserID    string `json:"userId"`
		Success   bool   `json:"success"`
	} `json:"events"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

func seed(t *testing.T, store *audit.Store, events ...audit.Event) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func list(t *testing.T, h *auditlog.Handler, query string) (*testutil.ResponseRecorder, listBody) {
	t.Helper()
	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/audit"+query, testutil.AdminUser()))
	var body listBody
	if rec.Code == http.StatusOK {
		rec.DecodeJSON(t, &body)
	}
	return rec, body
}

func TestServeList_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	h := auditlog.NewHandler(store, zap.NewNop())

	user := primitive.NewObjectID()
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seed(t, store,
		audit.Event{Timestamp: day, Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &user, Success: true},
		audit.Event{Timestamp: day.Add(time.Hour), Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, UserID: &user},
		audit.Event{Timestamp: day.Add(48 * time.Hour), Category: audit.CategoryEnrollment, EventType: audit.EventEnrollmentSucceeded, StudentID: "SID1", Success: true},
		audit.Event{Timestamp: day.Add(49 * time.Hour), Category: audit.CategoryEnrollment, EventType: audit.EventAccountCreated, StudentID: "SID1", Success: true},
	)

	tests := []struct {
		name      string
		query     string
		wantTotal int64
		wantFirst string
	}{
		{"all, newest first", "", 4, audit.EventAccountCreated},
		{"category", "?category=auth", 2, audit.EventLoginFailedWrongPassword},
		{"event type", "?event_type=login_success", 1, audit.EventLoginSuccess},
		{"student", "?student_id=SID1", 2, audit.EventAccountCreated},
		{"user", "?user_id=" + user.Hex(), 2, audit.EventLoginFailedWrongPassword},
		{"failures", "?success=false", 1, audit.EventLoginFailedWrongPassword},
		{"single day", "?start_date=2026-03-10&end_date=2026-03-10", 2, audit.EventLoginFailedWrongPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := list(t, h, tt.query)
			rec.AssertStatus(t, http.StatusOK)
			if body.Total != tt.wantTotal || int64(len(body.Events)) != tt.wantTotal {
				t.Fatalf("total = %d, events = %d, want %d", body.Total, len(body.Events), tt.wantTotal)
			}
			if body.Events[0].EventType != tt.wantFirst {
				t.Errorf("first = %s, want %s", body.Events[0].EventType, tt.wantFirst)
			}
		})
	}
}

func TestServeList_BadParams(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := auditlog.NewHandler(audit.New(db), zap.NewNop())

	for _, q := range []string{"?user_id=nope", "?success=maybe", "?start_date=10/03/2026", "?end_date=x"} {
		t.Run(q, func(t *testing.T) {
			rec, _ := list(t, h, q)
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestServeList_Paging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	h := auditlog.NewHandler(store, zap.NewNop())

	base := time.Now().UTC().Add(-time.Hour)
	var events []audit.Event
	for i := 0; i < 55; i++ {
		events = append(events, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Category:  audit.CategoryEnrollment,
			EventType: audit.EventAccountCreated,
			StudentID: fmt.Sprintf("SID%d", i),
		})
	}
	seed(t, store, events...)

	_, first := list(t, h, "")
	if len(first.Events) != 50 || first.TotalPages != 2 || !first.HasNext {
		t.Errorf("page 1 = %d events, %d pages, hasNext %v", len(first.Events), first.TotalPages, first.HasNext)
	}
	_, second := list(t, h, "?page=2")
	if len(second.Events) != 5 || second.HasNext {
		t.Errorf("page 2 = %d events, hasNext %v", len(second.Events), second.HasNext)
	}
	if second.Events[4].StudentID != "SID0" {
		t.Errorf("oldest event = %s, want SID0", second.Events[4].StudentID)
	}
}

