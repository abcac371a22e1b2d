package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/unai-app/unai/internal/cache"
	"github.com/unai-app/unai/internal/catalog"
	"github.com/unai-app/unai/internal/config"
	"github.com/unai-app/unai/internal/history"
	"github.com/unai-app/unai/internal/logger"
	"github.com/unai-app/unai/internal/rewrite"
)

// BuildOptions wires the collaborators enabled in cfg. Cache and history
// failures are logged and the server runs without them. The returned
// cleanup closes whatever was opened.
func BuildOptions(cfg *config.Config, log *logger.Logger, version string) (Options, func(), error) {
	opts := Options{Version: version}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	c, err := catalog.Load(cfg.Detection.Catalog, cfg.Detection.CatalogFile,
		catalog.WithMatchTimeout(cfg.Detection.MatchTimeout),
		catalog.WithLogger(log.WithComponent("catalog").Logger))
	if err != nil {
		return opts, cleanup, fmt.Errorf("failed to load pattern catalog: %w", err)
	}
	opts.Catalog = c
	log.Info("Pattern catalog loaded",
		zap.String("catalog", cfg.Detection.Catalog),
		zap.String("file", cfg.Detection.CatalogFile),
		zap.Int("patterns", c.Len()),
		zap.Int("literal_fallbacks", len(c.Fallbacks())))

	if cfg.Rewrite.Enabled {
		client := rewrite.NewOpenAIClient(rewrite.OpenAIConfig{
			BaseURL:     cfg.Rewrite.BaseURL,
			APIKey:      cfg.Rewrite.APIKey,
			Model:       cfg.Rewrite.Model,
			Temperature: cfg.Rewrite.Temperature,
			MaxTokens:   cfg.Rewrite.MaxTokens,
			Timeout:     cfg.Rewrite.Timeout,
		}, log.WithComponent("openai").Logger)
		if !client.Configured() {
			log.Warn("Rewrite API key not configured, /api/rewrite will be unavailable")
		}
		opts.Rewriter = client

		if cfg.Cache.Enabled && client.Configured() {
			rc, err := cache.NewRewriteCache(&cache.Config{
				RedisURL:       cfg.Cache.RedisURL,
				MaxConnections: cfg.Cache.MaxConnections,
				MinIdleConns:   cfg.Cache.MinIdleConns,
				DefaultTTL:     cfg.Cache.DefaultTTL,
				KeyPrefix:      cfg.Cache.KeyPrefix,
			}, log.WithComponent("cache").Logger)
			if err != nil {
				log.Warn("Rewrite cache unavailable, continuing without it", zap.Error(err))
			} else {
				closers = append(closers, rc.Close)
				opts.Cache = rc
				opts.Rewriter = rewrite.NewCachedRewriter(client, rc, client.Model(), log.WithComponent("cache").Logger)
			}
		}
	}

	if cfg.History.Enabled {
		store, err := history.Open(&history.Config{
			Driver:          cfg.History.Driver,
			DatabaseURL:     cfg.History.DatabaseURL,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		}, log.WithComponent("history").Logger)
		if err != nil {
			log.Warn("History store unavailable, continuing without it", zap.Error(err))
		} else {
			closers = append(closers, store.Close)
			opts.History = store
		}
	}

	return opts, cleanup, nil
}
