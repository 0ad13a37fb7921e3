package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lazypower/mnemo/internal/blob"
	"github.com/lazypower/mnemo/internal/config"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/logging"
	"github.com/lazypower/mnemo/internal/store"
)

// loadConfig reads --config, or the default path when the flag is unset.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openDB(cfg config.Config) (*store.DB, error) {
	source := cfg.Database.DSN
	if cfg.Database.Driver == store.DriverSQLite {
		source = cfg.Database.Path
		if source == "" {
			var err error
			if source, err = store.DefaultDBPath(); err != nil {
				return nil, fmt.Errorf("resolve db path: %w", err)
			}
		}
	}
	db, err := store.Open(cfg.Database.Driver, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// openBlobs connects to the configured bucket. Without an endpoint blobs are
// kept in memory and lost on exit.
func openBlobs(ctx context.Context, cfg config.Config, logger *zap.Logger) (blob.Store, error) {
	if cfg.Storage.Endpoint == "" {
		logger.Warn("no storage endpoint configured; exercise bodies and settings are kept in memory")
		return blob.NewMemory(), nil
	}
	s3, err := blob.NewS3(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return s3, nil
}

// runtime is everything a server-side command needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	db     *store.DB
	eng    *engine.Engine
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	blobs, err := openBlobs(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	cooldown := cfg.Cooldown()
	eng := engine.New(db, blobs, logger, engine.Options{
		Cooldown:   &cooldown,
		PurgeAfter: cfg.PurgeAfter(),
		URLExpiry:  cfg.URLExpiry(),
	})
	return &runtime{cfg: cfg, logger: logger, db: db, eng: eng}, nil
}

func (rt *runtime) Close() {
	rt.eng.Stop()
	rt.db.Close()
	rt.logger.Sync()
}
