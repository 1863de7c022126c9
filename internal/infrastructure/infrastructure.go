// Package infrastructure assembles the long-lived systems the dispatch server
// depends on: logging, the registry database, blob storage, the passage index,
// the weather client, and the inference agent.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/inference"
	"github.com/JaimeStill/dispatch/internal/weather"
	"github.com/JaimeStill/dispatch/pkg/database"
	"github.com/JaimeStill/dispatch/pkg/lifecycle"
	"github.com/JaimeStill/dispatch/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Index     index.Store
	Weather   weather.Source
	Inference *inference.Agent
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	idx, err := index.New(&cfg.Index, db.Connection())
	if err != nil {
		return nil, fmt.Errorf("index init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Index:     idx,
		Weather:   NewWeather(&cfg.Weather, logger),
		Inference: inference.New(cfg.Agent, logger),
	}, nil
}

// NewWeather returns an OpenWeatherMap client, or weather.Unavailable when no
// API key is configured.
func NewWeather(cfg *weather.Config, logger *slog.Logger) weather.Source {
	client, err := weather.New(cfg, logger)
	if err != nil {
		logger.Warn("weather lookups disabled", "error", err)
		return weather.Unavailable{}
	}
	return client
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// The index is registered after the database so it closes first.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	i.Lifecycle.OnShutdown("index", func(context.Context) error {
		return i.Index.Close()
	})

	return nil
}
