package container

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"shopassist/internal/config"
	"shopassist/internal/services"
	"shopassist/internal/storage"
	"shopassist/internal/utils"
)

// Container wires the application's services together.
type Container struct {
	Config *config.Config
	Redis  *redis.Client
	Store  *storage.Store

	Cache     *services.CacheService
	Sessions  *services.SessionService
	PubSub    *services.PubSubService
	Oracle    services.Oracle
	Grounding *services.GroundingService
	SiteFetch *services.SiteFetchService
	Responder *services.Responder

	GeminiRotator *utils.KeyRotator
}

func New(cfg *config.Config) (*Container, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cache := services.NewCacheService(rdb)
	sessions := services.NewSessionService(services.NewRedisKV(rdb), cfg.SessionLimit, cfg.TitleMaxRunes)
	pubsub := services.NewPubSubService(rdb)
	grounding := services.NewGroundingService(cfg.SnippetLimit)
	sitefetch := services.NewSiteFetchService(cache, cfg.SitePages, cfg.SiteCacheTTL)

	// The oracle is optional: without API keys the pipeline simply skips
	// that stage.
	var oracle services.Oracle
	var rotator *utils.KeyRotator
	if len(cfg.GeminiAPIKeys) > 0 {
		rotator, err = utils.NewKeyRotator(cfg.GeminiAPIKeys, cfg.GeminiKeyCooldown)
		if err != nil {
			return nil, fmt.Errorf("key rotator: %w", err)
		}
		gemini, err := services.NewGeminiService(rotator, cfg)
		if err != nil {
			utils.LogWarn(context.Background(), "oracle unavailable, continuing without it",
				slog.Any("error", err),
			)
		} else {
			oracle = gemini
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	responder := services.NewResponder(store, oracle, grounding, sitefetch, cfg, rng)

	return &Container{
		Config:        cfg,
		Redis:         rdb,
		Store:         store,
		Cache:         cache,
		Sessions:      sessions,
		PubSub:        pubsub,
		Oracle:        oracle,
		Grounding:     grounding,
		SiteFetch:     sitefetch,
		Responder:     responder,
		GeminiRotator: rotator,
	}, nil
}

// HealthCheck reports per-dependency status for the health endpoint.
func (c *Container) HealthCheck() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status := make(map[string]string)

	if err := c.Cache.Ping(ctx); err != nil {
		status["redis"] = "unavailable"
	} else {
		status["redis"] = "ok"
	}

	if err := c.Store.Ping(); err != nil {
		status["database"] = "unavailable"
	} else {
		status["database"] = "ok"
	}

	if c.Oracle != nil {
		status["oracle"] = "configured"
	} else {
		status["oracle"] = "disabled"
	}
	return status
}

func (c *Container) Close() error {
	if err := c.Store.Close(); err != nil {
		return err
	}
	return c.Redis.Close()
}
