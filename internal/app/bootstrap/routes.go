// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	accountsfeature "github.com/dalemusser/studentid/internal/app/features/accounts"
	auditlogfeature "github.com/dalemusser/studentid/internal/app/features/auditlog"
	enrollmentfeature "github.com/dalemusser/studentid/internal/app/features/enrollment"
	errorsfeature "github.com/dalemusser/studentid/internal/app/features/errors"
	healthfeature "github.com/dalemusser/studentid/internal/app/features/health"
	idcardfeature "github.com/dalemusser/studentid/internal/app/features/idcard"
	loginfeature "github.com/dalemusser/studentid/internal/app/features/login"
	logoutfeature "github.com/dalemusser/studentid/internal/app/features/logout"
	passwordfeature "github.com/dalemusser/studentid/internal/app/features/password"
	studentsfeature "github.com/dalemusser/studentid/internal/app/features/students"
	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/store/audit"
	documentstore "github.com/dalemusser/studentid/internal/app/store/documents"
	draftstore "github.com/dalemusser/studentid/internal/app/store/drafts"
	studentstore "github.com/dalemusser/studentid/internal/app/store/students"
	"github.com/dalemusser/studentid/internal/app/system/auditlog"
	"github.com/dalemusser/studentid/internal/app/system/auth"
	"github.com/dalemusser/studentid/internal/app/system/metrics"
	"github.com/dalemusser/studentid/internal/app/system/ratelimit"
	"github.com/dalemusser/studentid/internal/app/system/submitlock"
	"github.com/dalemusser/studentid/internal/app/system/workers"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The stores and cross-cutting services
// are built once here and shared by the feature handlers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	accounts := accountstore.New(db)
	students := studentstore.New(db)
	drafts := draftstore.New(deps.Redis, appCfg.DraftTTL)
	locker := submitlock.New(deps.Redis, appCfg.SubmitLockTTL)

	events := audit.New(db)
	auditLog := auditlog.New(events, logger, auditlog.Config{
		Auth:       appCfg.AuditLogAuth,
		Enrollment: appCfg.AuditLogEnrollment,
	})
	m := metrics.New()

	submitter := &enrollment.Submitter{
		Accounts:        accounts,
		Docs:            documentstore.New(db, logger),
		IDs:             enrollment.NewGenerator(appCfg.LoginDomain),
		DefaultPassword: appCfg.DefaultGuardianPassword,
		Log:             logger,
	}

	startWorkers(workers.NewDraftReconciler(drafts, locker, logger, appCfg.ReconcileInterval))

	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Authentication
	loginHandler := loginfeature.NewHandler(accounts, sessionMgr, auditLog, m, ratelimit.NewLoginLimiter(deps.Redis), appCfg.LoginDomain, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Get("/me", loginHandler.ServeMe)

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	passwordHandler := passwordfeature.NewHandler(accounts, sessionMgr, auditLog, logger)
	r.Mount("/password", passwordfeature.Routes(passwordHandler, sessionMgr))

	// Admin: enrollment wizard and student records
	enrollHandler := enrollmentfeature.NewHandler(drafts, locker, submitter, auditLog, m, logger)
	r.Mount("/enrollments", enrollmentfeature.Routes(enrollHandler, sessionMgr))

	studentsHandler := studentsfeature.NewHandler(students, logger)
	r.Mount("/students", studentsfeature.Routes(studentsHandler, sessionMgr))

	accountsHandler := accountsfeature.NewHandler(accounts, auditLog, appCfg.LoginDomain, logger)
	r.Mount("/accounts", accountsfeature.Routes(accountsHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(events, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	// Guardians: virtual ID cards
	idcardHandler := idcardfeature.NewHandler(students, appCfg.SchoolName, logger)
	r.Mount("/idcard", idcardfeature.Routes(idcardHandler, sessionMgr))

	return r, nil
}
