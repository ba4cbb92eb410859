// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/studentid/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown cleanly tears down DB connections and other resources.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	stopWorkers()

	var errs []error
	if deps.Redis != nil {
		logger.Info("closing Redis client")
		if err := deps.Redis.Close(); err != nil {
			logger.Error("Redis close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	workersMu  sync.Mutex
	reconciler *workers.DraftReconciler
)

// startWorkers runs the background workers until Shutdown. Building the
// handler twice replaces the previous workers.
func startWorkers(r *workers.DraftReconciler) {
	workersMu.Lock()
	defer workersMu.Unlock()
	if reconciler != nil {
		reconciler.Stop()
	}
	reconciler = r
	reconciler.Start()
}

func stopWorkers() {
	workersMu.Lock()
	defer workersMu.Unlock()
	if reconciler != nil {
		reconciler.Stop()
		reconciler = nil
	}
}
