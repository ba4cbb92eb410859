package password_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/studentid/internal/app/features/password"
	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/store/audit"
	"github.com/dalemusser/studentid/internal/app/system/auditlog"
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/dalemusser/studentid/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memAudit struct{ events []audit.Event }

func (m *memAudit) Log(_ context.Context, ev audit.Event) error {
	m.events = append(m.events, ev)
	return nil
}

func TestServeChange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	acct := fx.CreateAccount(ctx, "Sunita Kumar", "kumar-SID1@student-id.app", "123456", models.RoleParent)

	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	mem := &memAudit{}
	accounts := accountstore.New(db).WithCost(bcrypt.MinCost)
	h := password.NewHandler(accounts, sm, auditlog.New(mem, zap.NewNop(), auditlog.Config{}), zap.NewNop())

	user := testutil.TestUser{ID: acct.ID.Hex(), Name: acct.FullName, LoginID: acct.LoginID, Role: acct.Role}

	tests := []struct {
		name     string
		current  string
		next     string
		wantCode int
		wantBody string
	}{
		{"too short", "123456", "abc", http.StatusUnprocessableEntity, "at least 6"},
		{"same", "123456", "123456", http.StatusUnprocessableEntity, "invalid_password"},
		{"wrong current", "654321", "n3wpass", http.StatusUnprocessableEntity, "wrong_password"},
		{"ok", "123456", "n3wpass", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/password", map[string]string{
				"currentPassword": tt.current,
				"newPassword":     tt.next,
			}), user)
			h.ServeChange(rec, req)
			rec.AssertStatus(t, tt.wantCode)
			if tt.wantBody != "" {
				rec.AssertContains(t, tt.wantBody)
			}
		})
	}

	if _, err := accounts.Authenticate(ctx, acct.LoginID, "n3wpass"); err != nil {
		t.Errorf("new password does not authenticate: %v", err)
	}
	if len(mem.events) != 1 || mem.events[0].EventType != audit.EventPasswordChanged {
		t.Errorf("audit events = %+v", mem.events)
	}
}

func TestServeChange_Unauthenticated(t *testing.T) {
	h := password.NewHandler(nil, nil, nil, zap.NewNop())
	rec := testutil.NewRecorder()
	h.ServeChange(rec, testutil.NewJSONRequest(t, http.MethodPost, "/password", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
