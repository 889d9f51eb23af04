package localstore

import (
	"fmt"

	"github.com/bookstore/storefront/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates the local store selected by configuration
type Factory struct {
	cfg    config.LocalStoreConfig
	logger *zap.Logger
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.LocalStoreConfig, opts ...FactoryOption) *Factory {
	f := &Factory{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore opens the configured backend. When it cannot be opened and
// AllowMemoryFallback is set, an in-memory store is returned instead and the
// cart will not survive a restart.
func (f *Factory) CreateStore() (Store, error) {
	store, err := f.open()
	if err == nil {
		f.logger.Info("local store ready", zap.String("driver", f.cfg.Driver))
		return store, nil
	}

	if !f.cfg.AllowMemoryFallback {
		return nil, fmt.Errorf("local store %s unavailable: %w", f.cfg.Driver, err)
	}

	f.logger.Warn("local store unavailable, falling back to in-memory store; "+
		"the cart snapshot will not survive a restart",
		zap.String("driver", f.cfg.Driver),
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}

func (f *Factory) open() (Store, error) {
	switch f.cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLiteStore(f.cfg.Path)
	case config.DriverRedis:
		return NewRedisStore(RedisOptions{
			Addr:     f.cfg.Redis.Addr(),
			Password: f.cfg.Redis.Password,
			DB:       f.cfg.Redis.DB,
		})
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown local store driver %q", f.cfg.Driver)
	}
}
