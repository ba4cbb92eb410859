package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/studentid/internal/domain/models"
	"github.com/dalemusser/studentid/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:                "mongodb://localhost:27017",
		MongoDatabase:           "student_id_test",
		RedisAddr:               "localhost:6379",
		SessionKey:              strings.Repeat("k", 32),
		SessionMaxAge:           time.Hour,
		DefaultGuardianPassword: "123456",
		LoginDomain:             "student-id.app",
		DraftTTL:                24 * time.Hour,
		SubmitLockTTL:           time.Minute,
		ReconcileInterval:       time.Minute,
		AuditLogAuth:            "all",
		AuditLogEnrollment:      "db",
	}
}

func TestValidateConfig(t *testing.T) {
	core := &config.CoreConfig{Env: "dev"}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", func(*AppConfig) {}, false},
		{"bad mongo uri", func(c *AppConfig) { c.MongoURI = "" }, true},
		{"no redis", func(c *AppConfig) { c.RedisAddr = " " }, true},
		{"no session key", func(c *AppConfig) { c.SessionKey = "" }, true},
		{"no login domain", func(c *AppConfig) { c.LoginDomain = "" }, true},
		{"short default password", func(c *AppConfig) { c.DefaultGuardianPassword = "123" }, true},
		{"zero draft ttl", func(c *AppConfig) { c.DraftTTL = 0 }, true},
		{"lock shorter than submit timeout", func(c *AppConfig) { c.SubmitLockTTL = 30 * time.Second }, true},
		{"lock equal to submit timeout", func(c *AppConfig) { c.SubmitLockTTL = timeouts.DefaultSubmit }, true},
		{"admin login without password", func(c *AppConfig) { c.AdminLoginID = "admin" }, true},
		{"admin login with password", func(c *AppConfig) { c.AdminLoginID, c.AdminPassword = "admin", "secret1" }, false},
		{"unknown audit destination", func(c *AppConfig) { c.AuditLogAuth = "everywhere" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(core, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_SubmitTimeoutFromEnv(t *testing.T) {
	t.Cleanup(timeouts.Reset)
	core := &config.CoreConfig{Env: "dev"}
	cfg := validConfig()

	t.Setenv("STUDENTID_TIMEOUT_SUBMIT", "90s")
	if err := ValidateConfig(core, cfg, testLogger()); err == nil {
		t.Error("submit timeout above submit_lock_ttl should be rejected")
	}

	cfg.SubmitLockTTL = 2 * time.Minute
	if err := ValidateConfig(core, cfg, testLogger()); err != nil {
		t.Errorf("ValidateConfig() error = %v", err)
	}
}

func TestEnsureAdmin_CreatesOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureAdmin(ctx, db, "admin", "secret1", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var acct models.Account
	if err := db.Collection("accounts").FindOne(ctx, bson.M{"login_id": "admin"}).Decode(&acct); err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if acct.Role != models.RoleAdmin || acct.Status != models.StatusActive {
		t.Errorf("admin = role %q status %q", acct.Role, acct.Status)
	}

	// A second run with another password keeps the existing account.
	if err := ensureAdmin(ctx, db, "admin", "different", testLogger()); err != nil {
		t.Fatalf("second ensureAdmin failed: %v", err)
	}
	n, err := db.Collection("accounts").CountDocuments(ctx, bson.M{"login_id": "admin"})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("admin accounts = %d, want 1", n)
	}
	var again models.Account
	_ = db.Collection("accounts").FindOne(ctx, bson.M{"login_id": "admin"}).Decode(&again)
	if again.PasswordHash != acct.PasswordHash {
		t.Error("existing admin password was changed")
	}
}

func TestEnsureAdmin_SkipsWithoutLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureAdmin(ctx, db, "", "", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}
	n, _ := db.Collection("accounts").CountDocuments(ctx, bson.M{})
	if n != 0 {
		t.Errorf("accounts = %d, want 0", n)
	}
}

func TestEnsureSchema(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, &config.CoreConfig{}, validConfig(), deps, testLogger()); err != nil {
			t.Fatalf("EnsureSchema run %d failed: %v", i+1, err)
		}
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db, Redis: rdb}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validConfig(), deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}
	defer stopWorkers()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/me", http.StatusUnauthorized},
		{http.MethodGet, "/enrollments", http.StatusUnauthorized},
		{http.MethodGet, "/students", http.StatusUnauthorized},
		{http.MethodGet, "/idcard", http.StatusUnauthorized},
		{http.MethodGet, "/audit", http.StatusUnauthorized},
		{http.MethodGet, "/accounts", http.StatusUnauthorized},
		{http.MethodPost, "/logout", http.StatusUnauthorized},
		{http.MethodGet, "/no-such-page", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
