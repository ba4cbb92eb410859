package auth_test

// Terminology: User Identifiers
//   - UserID / userID / user_id: the MongoDB ObjectID (_id) of an account
//   - LoginID / loginID / login_id: the string typed at sign-in, e.g.
//     "kumar-SID1772357400000@student-id.app" for guardians

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/studentid/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:      "507f1f77bcf86cd799439011",
		Name:    "Test User",
		LoginID: "test@student-id.app",
		Role:    role,
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireSignedIn(okHandler())

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"no user", httptest.NewRequest("GET", "/api/data", nil), http.StatusUnauthorized},
		{"signed in", withUser(httptest.NewRequest("GET", "/api/data", nil), "parent"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)

	tests := []struct {
		name    string
		allowed []string
		role    string
		want    int
	}{
		{"no user", []string{"admin"}, "", http.StatusUnauthorized},
		{"wrong role", []string{"admin"}, "parent", http.StatusForbidden},
		{"correct role", []string{"admin"}, "admin", http.StatusOK},
		{"one of several", []string{"admin", "parent"}, "parent", http.StatusOK},
		{"case insensitive", []string{"Admin"}, "ADMIN", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/students", nil)
			if tt.role != "" {
				req = withUser(req, tt.role)
			}
			rec := httptest.NewRecorder()
			sm.RequireRole(tt.allowed...)(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK && rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("error response should be JSON, got %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestLoginRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	err := sm.Login(rec, req, auth.SessionUser{
		ID:                 "abc",
		Name:               "Sunita Kumar",
		LoginID:            "kumar-SID1@student-id.app",
		Role:               "parent",
		MustChangePassword: true,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	var got *auth.SessionUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	})
	req2 := httptest.NewRequest("GET", "/idcard", nil)
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	sm.LoadSessionUser(next).ServeHTTP(httptest.NewRecorder(), req2)

	if got == nil {
		t.Fatal("expected user loaded from session")
	}
	if got.ID != "abc" || got.Role != "parent" || !got.MustChangePassword {
		t.Errorf("session user = %+v", got)
	}
}

func TestLoadSessionUser_NoCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	})
	sm.LoadSessionUser(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if found {
		t.Error("no user expected without a session cookie")
	}
}
