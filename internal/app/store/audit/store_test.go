package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/studentid/internal/app/store/audit"
	"github.com/dalemusser/studentid/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestStore_GetByStudent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, ev := range []audit.Event{
		{Category: audit.CategoryEnrollment, EventType: audit.EventEnrollmentFailed, StudentID: "SID1", FailureReason: "collision"},
		{Category: audit.CategoryEnrollment, EventType: audit.EventEnrollmentSucceeded, StudentID: "SID1", Success: true},
		{Category: audit.CategoryEnrollment, EventType: audit.EventEnrollmentSucceeded, StudentID: "SID2", Success: true},
	} {
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	events, err := store.GetByStudent(ctx, "SID1", 10)
	if err != nil {
		t.Fatalf("GetByStudent failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now()
	old := now.Add(-48 * time.Hour)
	seed := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true, Timestamp: now},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, Timestamp: now},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedUserNotFound, Timestamp: old},
		{Category: audit.CategoryEnrollment, EventType: audit.EventAccountCreated, Success: true, Timestamp: now},
	}
	for _, ev := range seed {
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	since := now.Add(-time.Hour)
	failed := false
	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"all", audit.QueryFilter{}, 4},
		{"by category", audit.QueryFilter{Category: audit.CategoryAuth}, 3},
		{"by event type", audit.QueryFilter{EventType: audit.EventAccountCreated}, 1},
		{"by time", audit.QueryFilter{StartTime: &since}, 3},
		{"failures", audit.QueryFilter{Success: &failed}, 2},
		{"limit", audit.QueryFilter{Limit: 2}, 2},
		{"offset", audit.QueryFilter{Offset: 3}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryEnrollment})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountByFilter = %d, want 1", n)
	}
}

func TestStore_GetFailedLogins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryEnrollment, EventType: audit.EventEnrollmentFailed})

	events, err := store.GetFailedLogins(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventLoginFailedWrongPassword {
		t.Errorf("unexpected events: %+v", events)
	}
}
