// internal/app/system/workers/draftreconciler.go
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	draftstore "github.com/dalemusser/studentid/internal/app/store/drafts"
	"github.com/dalemusser/studentid/internal/app/system/submitlock"
	"github.com/dalemusser/studentid/internal/domain/enrollment"
	"go.uber.org/zap"
)

// InterruptedMessage is stored as LastError on forms whose submission died.
const InterruptedMessage = "Submission was interrupted. Please submit again."

// DraftReconciler is a background worker that marks drafts left in
// "submitting" by a crashed or killed process as failed, so the wizard
// offers a retry instead of showing a submission forever in progress.
type DraftReconciler struct {
	drafts   *draftstore.Store
	locks    *submitlock.Locker
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDraftReconciler creates a new reconciler running every interval.
func NewDraftReconciler(drafts *draftstore.Store, locks *submitlock.Locker, logger *zap.Logger, interval time.Duration) *DraftReconciler {
	return &DraftReconciler{
		drafts:   drafts,
		locks:    locks,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *DraftReconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("draft reconciler started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *DraftReconciler) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("draft reconciler stopped")
}

func (w *DraftReconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := w.Reconcile(ctx); err != nil {
				w.log.Error("draft reconcile failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Reconcile runs one pass and returns how many drafts it marked failed.
//
// A draft is only touched while holding its submission lock, and re-read
// under it, so a submission finishing concurrently is never overwritten.
func (w *DraftReconciler) Reconcile(ctx context.Context) (int, error) {
	ids, err := w.drafts.IDs(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, id := range ids {
		f, err := w.drafts.Get(ctx, id)
		if err != nil || f.Status != enrollment.StatusSubmitting {
			continue
		}
		ok, err := w.fail(ctx, id)
		if err != nil {
			w.log.Warn("draft reconcile", zap.String("form_id", id), zap.Error(err))
			continue
		}
		if ok {
			fixed++
		}
	}
	if fixed > 0 {
		w.log.Info("marked interrupted submissions failed", zap.Int("count", fixed))
	}
	return fixed, nil
}

func (w *DraftReconciler) fail(ctx context.Context, id string) (bool, error) {
	lock, err := w.locks.Acquire(ctx, id)
	if errors.Is(err, submitlock.ErrHeld) {
		// A submission is running right now.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _, _ = lock.Release(context.WithoutCancel(ctx)) }()

	f, err := w.drafts.Get(ctx, id)
	if errors.Is(err, draftstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if f.Status != enrollment.StatusSubmitting {
		return false, nil
	}
	f.Status = enrollment.StatusFailed
	f.LastError = InterruptedMessage
	f.UpdatedAt = time.Now().UTC()
	if err := w.drafts.Save(ctx, f); err != nil {
		return false, err
	}
	return true, nil
}
