package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/mnemo/internal/blob"
	"github.com/lazypower/mnemo/internal/store"
)

// PurgeMarked hard-deletes exercises that were marked for deletion longer
// than PurgeAfter ago, together with their bodies. It keeps going past
// individual failures and returns how many exercises were removed.
func (e *Engine) PurgeMarked(ctx context.Context) (int, error) {
	cutoff := e.now().Add(-e.opts.PurgeAfter).UnixMilli()
	ids, err := e.DB.ListMarkedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		if err := e.DB.DeleteExercise(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			e.Logger.Error("purge: delete exercise", zap.String("id", id), zap.Error(err))
			continue
		}
		if err := e.Blobs.Delete(ctx, blob.ExerciseKey(id)); err != nil {
			e.Logger.Warn("purge: delete exercise body", zap.String("id", id), zap.Error(err))
		}
		removed++
	}
	return removed, nil
}

func (e *Engine) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := e.PurgeMarked(ctx)
	if err != nil {
		e.Logger.Error("purge failed", zap.Error(err))
		return
	}
	if removed > 0 {
		e.Logger.Info("purge: removed exercises", zap.Int("count", removed))
	}
}

// StartPurgeTimer runs the purge on startup and then every interval. A
// non-positive interval runs it once and starts no timer.
func (e *Engine) StartPurgeTimer(interval time.Duration) {
	e.runPurge()
	if interval <= 0 {
		e.Logger.Warn("purge interval is not positive; periodic purge disabled", zap.Duration("interval", interval))
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.runPurge()
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines and waits for them.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}
