package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/viper"

	"github.com/canne/csm-router/internal/adapters/reviewer"
	"github.com/canne/csm-router/internal/adapters/warehouse"
	"github.com/canne/csm-router/internal/application"
	"github.com/canne/csm-router/internal/config"
	"github.com/canne/csm-router/internal/ports"
)

type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = envOrDefault("CSMROUTER_DATABASE_URL", "postgres://localhost:5432/csmrouter?sslmode=disable")
	}
	if cfg.ReviewerURL == "" {
		cfg.ReviewerURL = envOrDefault("CSMROUTER_REVIEWER_URL", "http://localhost:8091")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return &app{cfg: cfg, logger: logger}, nil
}

// controller connects the warehouse and reviewer and assembles the routing
// controller. The returned cleanup closes the database pool.
func (a *app) controller(ctx context.Context, dryRun bool) (*application.Controller, func(), error) {
	store, err := warehouse.New(ctx, a.cfg.DatabaseURL, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire warehouse: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	var recommendations ports.RecommendationStore = store
	if dryRun {
		recommendations = discardStore{}
	}

	review := reviewer.New(a.cfg.ReviewerURL, http.DefaultClient, a.cfg.ReviewTimeout, a.logger)
	ctrl := application.NewController(a.cfg, store, store, review, recommendations, ports.SystemClock{}, a.logger)
	return ctrl, store.Close, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
