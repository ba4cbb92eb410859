// internal/app/features/auditlog/handler.go
package auditlog

import (
	apierrors "github.com/dalemusser/studentid/internal/app/features/errors"
	"github.com/dalemusser/studentid/internal/app/store/audit"
	"go.uber.org/zap"
)

type Handler struct {
	Events *audit.Store
	Log    *zap.Logger
	ErrLog *apierrors.ErrorLogger
}

// NewHandler constructs an Audit Log feature handler reading from events.
func NewHandler(events *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Log:    logger,
		ErrLog: apierrors.NewErrorLogger(logger),
	}
}
