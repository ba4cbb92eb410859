// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	accountstore "github.com/dalemusser/studentid/internal/app/store/accounts"
	"github.com/dalemusser/studentid/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}
	return ensureAdmin(ctx, deps.MongoDatabase, appCfg.AdminLoginID, appCfg.AdminPassword, logger)
}

// ensureAdmin creates the configured admin account when it does not exist
// yet. An existing account is left alone, password included.
func ensureAdmin(ctx context.Context, db *mongo.Database, loginID, password string, logger *zap.Logger) error {
	if loginID == "" {
		logger.Info("no admin_login_id configured; skipping admin bootstrap")
		return nil
	}
	created, err := accountstore.New(db).EnsureAdmin(ctx, loginID, password)
	if err != nil {
		logger.Error("admin bootstrap failed", zap.String("login_id", loginID), zap.Error(err))
		return fmt.Errorf("ensure admin %q: %w", loginID, err)
	}
	if created {
		logger.Info("created admin account", zap.String("login_id", loginID))
	}
	return nil
}
