package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/echomatch/echomatch/internal/cache"
	"github.com/echomatch/echomatch/internal/config"
	"github.com/echomatch/echomatch/internal/events"
)

// AppContext holds shared dependencies (DB, Redis, publisher, logger).
// Everything is constructed once in the composition root and injected so
// tests can substitute fakes.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Publisher  *events.Publisher
	Logger     *slog.Logger
}

// New creates a new AppContext.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, pub *events.Publisher, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Publisher:  pub,
		Logger:     logger,
	}
}
