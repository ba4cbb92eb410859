// Package auth manages cookie sessions and the signed-in user carried in the
// request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session value keys.
const (
	isAuthKey     = "is_authenticated"
	userIDKey     = "user_id"
	userNameKey   = "user_name"
	loginIDKey    = "login_id"
	userRoleKey   = "user_role"
	mustChangeKey = "must_change_password"
)

// SessionUser is what we keep in the session and inject into r.Context().
type SessionUser struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	LoginID            string `json:"loginId"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the signed-in user, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser puts u into the request context, bypassing the session.
// Handler tests use it.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// SessionManager owns the cookie store.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds a cookie store keyed by sessionKey. Over plain
// http (secure=false) cookies use SameSite=Lax; otherwise Secure with
// SameSite=None so the mobile client's web views can send them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide at least 32 random characters")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "studentid-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session store initialized", zap.Bool("secure", secure), zap.String("domain", domain))
	return &SessionManager{store: store, name: name, log: logger}, nil
}

// Login writes u into a fresh session.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values = map[any]any{
		isAuthKey:     true,
		userIDKey:     u.ID,
		userNameKey:   u.Name,
		loginIDKey:    u.LoginID,
		userRoleKey:   u.Role,
		mustChangeKey: u.MustChangePassword,
	}
	return sess.Save(r, w)
}

// ClearMustChangePassword updates the flag in the caller's session after a
// password change.
func (m *SessionManager) ClearMustChangePassword(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[mustChangeKey] = false
	return sess.Save(r, w)
}

// Logout expires the session cookie.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionUser injects the session's user into the request context.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			m.log.Debug("ignoring unreadable session cookie", zap.Error(err))
		}
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			must, _ := sess.Values[mustChangeKey].(bool)
			r = withUser(r, &SessionUser{
				ID:                 getString(sess, userIDKey),
				Name:               getString(sess, userNameKey),
				LoginID:            getString(sess, loginIDKey),
				Role:               getString(sess, userRoleKey),
				MustChangePassword: must,
			})
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn answers 401 when no user is in context.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			deny(w, http.StatusUnauthorized, "unauthorized", "Sign in required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 without a user and 403 when the user's role is not
// one of allowed (case-insensitive).
func (m *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized", "Sign in required.")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				deny(w, http.StatusForbidden, "forbidden", "You don't have permission to do that.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// deny writes the {"code","error"} body used by every JSON error response.
func deny(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "error": msg})
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
