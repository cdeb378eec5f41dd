// Package warehouse implements the data provider and recommendation store on
// the analytics database.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canne/csm-router/internal/ports"
)

// Store wraps a pgxpool connection pool and implements the warehouse-facing
// ports.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ ports.DataProvider        = (*Store)(nil)
	_ ports.RecencyProvider     = (*Store)(nil)
	_ ports.RecommendationStore = (*Store)(nil)
)

func New(ctx context.Context, connString string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the routing tables when they do not exist yet. The
// recommendations table's (account_id, run_id, method) key is what makes
// recommendation writes idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS csm_recommendations (
			account_id        VARCHAR(50)  NOT NULL,
			recommended_agent VARCHAR(100) NOT NULL,
			optimization_score DOUBLE PRECISION,
			method            VARCHAR(50)  NOT NULL,
			run_id            VARCHAR(64)  NOT NULL,
			batch_size        INTEGER,
			was_assigned      BOOLEAN      NOT NULL DEFAULT FALSE,
			actual_agent      VARCHAR(100),
			llm_feedback      TEXT,
			created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (account_id, run_id, method)
		)`,
		`CREATE TABLE IF NOT EXISTS csm_assignments (
			account_id       VARCHAR(50) PRIMARY KEY,
			agent            VARCHAR(100) NOT NULL,
			assignment_method VARCHAR(50),
			llm_feedback     TEXT,
			assigned_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_updated     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_agent_time
			ON csm_recommendations (recommended_agent, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
