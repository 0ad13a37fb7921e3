package engine

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/mnemo/internal/apperr"
	"github.com/lazypower/mnemo/internal/blob"
	"github.com/lazypower/mnemo/internal/store"
)

// Options tune the engine. Zero values fall back to the defaults below,
// except Cooldown where only nil does: a zero cooldown is valid.
type Options struct {
	Cooldown   *time.Duration // spacing between two studies of one exercise
	PurgeAfter time.Duration // how long marked exercises stay restorable
	URLExpiry  time.Duration // lifetime of signed blob URLs
}

const (
	defaultCooldown   = 10 * time.Minute
	defaultPurgeAfter = 30 * 24 * time.Hour
	defaultURLExpiry  = 15 * time.Minute

	// hydrateConcurrency bounds parallel blob reads in HydrateMany.
	hydrateConcurrency = 8
)

// Engine coordinates the relational store and the blob store: exercise
// bodies, study scheduling, settings and the purge of deleted exercises.
type Engine struct {
	DB     *store.DB
	Blobs  blob.Store
	Logger *zap.Logger

	opts Options
	now  func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Engine.
func New(db *store.DB, blobs blob.Store, logger *zap.Logger, opts Options) *Engine {
	if opts.Cooldown == nil || *opts.Cooldown < 0 {
		d := defaultCooldown
		opts.Cooldown = &d
	}
	if opts.PurgeAfter <= 0 {
		opts.PurgeAfter = defaultPurgeAfter
	}
	if opts.URLExpiry <= 0 {
		opts.URLExpiry = defaultURLExpiry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		DB:     db,
		Blobs:  blobs,
		Logger: logger,
		opts:   opts,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// URLExpiry is how long signed URLs handed out by the engine stay valid.
func (e *Engine) URLExpiry() time.Duration {
	return e.opts.URLExpiry
}

// Now is the engine's clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// StoreError converts store and blob sentinels into coded errors. kind and
// id only shape the NOT_FOUND message.
func StoreError(err error, kind, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		return apperr.Missing(kind, id)
	case errors.Is(err, store.ErrConflict):
		return apperr.Wrap(apperr.Conflict, err, kind+" already exists")
	}
	return err
}
