// internal/app/bootstrap/config.go
package bootstrap

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	draftstore "github.com/dalemusser/studentid/internal/app/store/drafts"
	"github.com/dalemusser/studentid/internal/app/system/auditlog"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for StudentID.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, redis_addr, etc.
//   - Environment variables: STUDENTID_MONGO_URI, STUDENTID_REDIS_ADDR, etc.
//   - Command-line flags: --mongo_uri, --redis_addr, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "student_id", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Redis (drafts and submission locks)
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (host:port)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Sessions
	{Name: "session_key", Default: "", Desc: "Session signing key (required in prod; a random key is generated in dev)"},
	{Name: "session_name", Default: "studentid-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session lifetime (e.g., 24h, 720h)"},

	// Enrollment
	{Name: "default_guardian_password", Default: "123456", Desc: "Initial password for provisioned guardian accounts"},
	{Name: "login_domain", Default: "student-id.app", Desc: "Domain of synthesized guardian login IDs"},
	{Name: "draft_ttl", Default: "24h", Desc: "How long an idle enrollment form is kept"},
	{Name: "submit_lock_ttl", Default: "2m", Desc: "Upper bound on how long one submission holds its form"},
	{Name: "reconcile_interval", Default: "1m", Desc: "How often drafts stuck in 'submitting' are marked failed"},
	{Name: "school_name", Default: "", Desc: "School name printed on virtual ID cards"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_enrollment", Default: "all", Desc: "Enrollment event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Admin bootstrap
	{Name: "admin_login_id", Default: "", Desc: "Login ID of the bootstrap admin (created on startup when missing)"},
	{Name: "admin_password", Default: "", Desc: "Password of the bootstrap admin"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, STUDENTID_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STUDENTID", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		DefaultGuardianPassword: appValues.String("default_guardian_password"),
		LoginDomain:             strings.TrimPrefix(strings.TrimSpace(appValues.String("login_domain")), "@"),
		DraftTTL:                appValues.Duration("draft_ttl", draftstore.DefaultTTL),
		SubmitLockTTL:           appValues.Duration("submit_lock_ttl", 2*time.Minute),
		ReconcileInterval:       appValues.Duration("reconcile_interval", time.Minute),
		SchoolName:              appValues.String("school_name"),

		AuditLogAuth:       appValues.String("audit_log_auth"),
		AuditLogEnrollment: appValues.String("audit_log_enrollment"),

		AdminLoginID:  strings.TrimSpace(appValues.String("admin_login_id")),
		AdminPassword: appValues.String("admin_password"),
	}

	// Outside prod a missing key gets a random one; sessions then end on restart.
	if appCfg.SessionKey == "" && coreCfg.Env != "prod" {
		appCfg.SessionKey = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		logger.Warn("session_key not set; using a random key for this process")
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.RedisAddr) == "" {
		return errors.New("redis_addr is required")
	}
	if appCfg.SessionKey == "" {
		return errors.New("session_key is required in prod")
	}
	if appCfg.LoginDomain == "" {
		return errors.New("login_domain is required")
	}
	if len(appCfg.DefaultGuardianPassword) < accountstore.MinPasswordLength {
		return fmt.Errorf("default_guardian_password must be at least %d characters", accountstore.MinPasswordLength)
	}
	if appCfg.DraftTTL <= 0 || appCfg.SubmitLockTTL <= 0 || appCfg.ReconcileInterval <= 0 {
		return errors.New("draft_ttl, submit_lock_ttl and reconcile_interval must be positive")
	}
	// The lock must outlive the submission it guards.
	envTimeouts, _ := timeouts.FromEnv()
	if submit := timeouts.Effective(envTimeouts).Submit; submit >= appCfg.SubmitLockTTL {
		return fmt.Errorf("submit_lock_ttl (%s) must be longer than STUDENTID_TIMEOUT_SUBMIT (%s)", appCfg.SubmitLockTTL, submit)
	}
	if (appCfg.AdminLoginID == "") != (appCfg.AdminPassword == "") {
		return errors.New("admin_login_id and admin_password must be set together")
	}
	for name, v := range map[string]string{
		"audit_log_auth":       appCfg.AuditLogAuth,
		"audit_log_enrollment": appCfg.AuditLogEnrollment,
	} {
		switch v {
		case auditlog.DestAll, auditlog.DestDB, auditlog.DestLog, auditlog.DestOff:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", name, v)
		}
	}
	return nil
}
