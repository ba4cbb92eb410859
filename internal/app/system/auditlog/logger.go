// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: User Identifiers
//   - UserID / userID / user_id: the MongoDB ObjectID (_id) of an account
//   - LoginID / loginID / login_id: the string typed at sign-in

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/studentid/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category: "all" (MongoDB + zap), "db" (MongoDB only),
// "log" (zap only), "off".
const (
	DestAll = "all"
	DestDB  = "db"
	DestLog = "log"
	DestOff = "off"
)

// Config picks a destination per event category.
type Config struct {
	Auth       string
	Enrollment string
}

// EventStore persists audit events. *audit.Store satisfies it.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger records audit events to the store and to zap.
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.StudentID != "" {
		fields = append(fields, zap.String("student_id", event.StudentID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's destination. A nil Logger
// is a no-op so tests can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var dest string
	switch event.Category {
	case audit.CategoryAuth:
		dest = l.config.Auth
	case audit.CategoryEnrollment:
		dest = l.config.Enrollment
	}
	if dest == "" {
		dest = DestAll
	}
	if dest == DestOff {
		return
	}

	if dest == DestAll || dest == DestLog {
		l.logToZap(event)
	}
	if (dest == DestAll || dest == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

// --- Authentication events ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"login_id": loginID},
	})
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedLoginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            clientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_login_id": attemptedLoginID},
	})
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		IP:            clientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "wrong password",
		Details:       map[string]string{"login_id": loginID},
	})
}

func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserDisabled,
		UserID:        &userID,
		IP:            clientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "account disabled",
		Details:       map[string]string{"login_id": loginID},
	})
}

func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, attemptedLoginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		IP:            clientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "rate limited",
		Details:       map[string]string{"attempted_login_id": attemptedLoginID},
	})
}

// Logout takes the ID as a string because it comes straight from the
// session; an unparsable ID is recorded without a user.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	ev := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	}
	if id, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		ev.UserID = &id
	}
	l.Log(ctx, ev)
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID, wasTemporary bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordChanged,
		UserID:    &userID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"was_temporary": strconv.FormatBool(wasTemporary)},
	})
}

// --- Account administration ---

// AccountAdded records an account an admin created directly.
func (l *Logger) AccountAdded(ctx context.Context, r *http.Request, actorID, accountID primitive.ObjectID, loginID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventAccountAdded,
		UserID:    &accountID,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"login_id": loginID, "role": role},
	})
}

// AccountUpdated records an admin edit. changes maps field to new value.
func (l *Logger) AccountUpdated(ctx context.Context, r *http.Request, actorID, accountID primitive.ObjectID, changes map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventAccountUpdated,
		UserID:    &accountID,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   changes,
	})
}

// --- Enrollment events ---

// AccountCreated records a guardian account provisioned during enrollment.
func (l *Logger) AccountCreated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, accountID, loginID, studentID string) {
	ev := audit.Event{
		Category:  audit.CategoryEnrollment,
		EventType: audit.EventAccountCreated,
		ActorID:   &actorID,
		StudentID: studentID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"login_id": loginID},
	}
	if id, err := primitive.ObjectIDFromHex(accountID); err == nil {
		ev.UserID = &id
	}
	l.Log(ctx, ev)
}

func (l *Logger) EnrollmentSucceeded(ctx context.Context, r *http.Request, actorID primitive.ObjectID, studentID, studentDocID string, guardians int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryEnrollment,
		EventType: audit.EventEnrollmentSucceeded,
		ActorID:   &actorID,
		StudentID: studentID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details: map[string]string{
			"student_doc_id": studentDocID,
			"guardians":      strconv.Itoa(guardians),
		},
	})
}

// EnrollmentFailed records a failed submission. provisioned lists the login
// IDs of accounts that were created before the failure and remain.
func (l *Logger) EnrollmentFailed(ctx context.Context, r *http.Request, actorID primitive.ObjectID, studentID, reason string, provisioned []string) {
	ev := audit.Event{
		Category:      audit.CategoryEnrollment,
		EventType:     audit.EventEnrollmentFailed,
		ActorID:       &actorID,
		StudentID:     studentID,
		IP:            clientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: reason,
	}
	if len(provisioned) > 0 {
		ev.Details = map[string]string{"provisioned_login_ids": strings.Join(provisioned, ",")}
	}
	l.Log(ctx, ev)
}
