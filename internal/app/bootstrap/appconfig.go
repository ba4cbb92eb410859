// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, body limits); this
// struct covers everything specific to student enrollment.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis holds enrollment drafts and submission locks
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: studentid-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Enrollment
	DefaultGuardianPassword string        // initial password for provisioned guardian accounts
	LoginDomain             string        // domain part of synthesized guardian login IDs
	DraftTTL                time.Duration // idle lifetime of an unsubmitted form
	SubmitLockTTL           time.Duration // upper bound on one submission holding its form
	ReconcileInterval       time.Duration // how often interrupted submissions are swept
	SchoolName              string        // printed on virtual ID cards

	// Audit logging: "all", "db", "log", or "off"
	AuditLogAuth       string
	AuditLogEnrollment string

	// Bootstrap admin, created on startup when missing
	AdminLoginID  string
	AdminPassword string
}
