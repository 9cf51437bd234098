// Package engine wires repositories, locks and services from configuration.
package engine

import (
	"buyer-intent-engine/internal/config"
	"buyer-intent-engine/internal/feed"
	"buyer-intent-engine/internal/ingestion"
	"buyer-intent-engine/internal/lock"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/market"
	"buyer-intent-engine/internal/preferences"
	"buyer-intent-engine/internal/repository"
	"buyer-intent-engine/internal/repository/memory"
	"buyer-intent-engine/internal/scoring"
	"buyer-intent-engine/internal/trigger"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Engine holds every service of a running intent engine.
type Engine struct {
	Repos       *repository.Repositories
	Scoring     *scoring.Service
	Ingestion   *ingestion.Service
	Preferences *preferences.Extractor
	Market      *market.Service
	Evaluator   *trigger.Evaluator
	Feed        *feed.Service

	db    *gorm.DB
	redis *redis.Client
	log   *logger.Logger
}

// New connects storage and builds the services. With the postgres driver
// the engine tables are migrated; projections are migrated only outside
// production, where collaborators own them.
func New(cfg *config.Config, log *logger.Logger) (*Engine, error) {
	e := &Engine{log: log}

	switch cfg.Database.Driver {
	case config.DatabaseDriverMemory:
		log.Warn("⚠️  Using in-memory storage, data is lost on exit")
		e.Repos = memory.NewStore().Repositories()
	default:
		db, err := repository.InitDatabase(cfg.Database, cfg.App)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		e.db = db
		log.Info("✅ Database connected")

		if err := repository.AutoMigrate(db); err != nil {
			e.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		if cfg.App.Environment != "production" {
			if err := repository.AutoMigrateProjections(db); err != nil {
				e.Close()
				return nil, fmt.Errorf("migrate projections: %w", err)
			}
		}
		log.Info("✅ Database migrated")

		e.Repos = repository.NewRepositories(db)
	}

	locker, err := e.newLocker(cfg)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.Scoring = scoring.NewService(e.Repos.Scores, e.Repos.Snapshots, nil, log)
	e.Ingestion = ingestion.NewService(e.Repos.Buyers, e.Repos.Events, e.Repos.Views, e.Scoring, log)
	e.Preferences = preferences.NewExtractor(e.Repos.Events, e.Repos.Properties, log)
	e.Market = market.NewService(e.Repos.Zones, e.Repos.Properties, e.Repos.Scarcity, log)
	e.Evaluator = trigger.NewEvaluator(e.Repos, e.Scoring, e.Preferences, e.Market, log)
	e.Feed = feed.NewService(e.Repos.Users, e.Repos.Leads, e.Evaluator, locker, cfg.Engine.FeedConcurrency, log)

	return e, nil
}

// newLocker returns the Redis lease lock when Redis is configured and an
// in-process lock otherwise.
func (e *Engine) newLocker(cfg *config.Config) (lock.Locker, error) {
	client, err := lock.NewRedisClient(cfg.Redis)
	if err != nil {
		if cfg.App.Environment == "production" {
			return nil, fmt.Errorf("redis is required in production: %w", err)
		}
		e.log.Warn("⚠️  Redis unavailable (%v), trigger locks are process-local", err)
		return lock.NewKeyedMutex(), nil
	}
	if client == nil {
		e.log.Info("Redis not configured, trigger locks are process-local")
		return lock.NewKeyedMutex(), nil
	}

	e.redis = client
	e.log.Info("✅ Redis connected")

	return lock.NewRedisLocker(
		client,
		time.Duration(cfg.Engine.LockTTLSeconds)*time.Second,
		time.Duration(cfg.Engine.LockWaitSeconds)*time.Second,
		e.log,
	), nil
}

// Close releases the database and Redis connections.
func (e *Engine) Close() {
	if e.redis != nil {
		if err := lock.CloseRedisClient(e.redis); err != nil {
			e.log.Warn("Failed to close Redis: %v", err)
		}
		e.redis = nil
	}
	if e.db != nil {
		if err := repository.CloseDatabase(e.db); err != nil {
			e.log.Warn("Failed to close database: %v", err)
		}
		e.db = nil
	}
}
