package main

import (
	"log/slog"
	"time"

	"github.com/kwang-arcfusion/askchat/src/chatapi"
	"github.com/kwang-arcfusion/askchat/src/config"
	"github.com/kwang-arcfusion/askchat/src/history"
)

// app bundles the wiring shared by all commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *chatapi.Client
	cache  *history.Cache
	store  *history.Store
}

func newApp(cli *CLI) (*app, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		// Flag/env overrides may still satisfy the base URL requirement.
		cfg = config.Default()
		cfg.BaseURL = cli.BaseURL
		cfg.APIKey = cli.APIKey
		if cli.LogLevel != "" {
			cfg.LogLevel = cli.LogLevel
		}
		if verr := config.Validate(cfg); verr != nil {
			return nil, err
		}
	}
	if cli.BaseURL != "" {
		cfg.BaseURL = cli.BaseURL
	}
	if cli.APIKey != "" {
		cfg.APIKey = cli.APIKey
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}

	logger := createCLILogger(cfg.LogLevel)
	slog.SetDefault(logger)

	client, err := chatapi.NewClient(chatapi.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Logger:  logger,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, client: client}

	if cfg.HistoryDBPath != "-" {
		path := cfg.HistoryDBPath
		if path == "" {
			path = config.DefaultHistoryDBPath()
		}
		store, err := history.OpenStore(path)
		if err != nil {
			// A broken local cache is not fatal; run without it.
			logger.Warn("failed to open history cache, continuing without", "path", path, "error", err)
		} else {
			a.store = store
		}
	}

	a.cache = history.NewCache(history.CacheConfig{
		API:    client,
		Store:  a.store,
		Logger: logger,
	})
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}
