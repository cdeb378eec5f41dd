package ports

import (
	"context"

	"github.com/canne/csm-router/internal/domain"
)

// DataProvider supplies enriched accounts and agent book snapshots from the
// warehouse. The core never computes enrichment itself.
type DataProvider interface {
	// PendingAccounts returns the accounts currently awaiting placement.
	PendingAccounts(ctx context.Context) ([]domain.Account, error)
	// Books returns the current book per eligible agent. Agents with fewer
	// than minAccounts items are not eligible targets.
	Books(ctx context.Context, minAccounts int) (domain.Books, error)
}

// RecencyProvider returns trailing-window assignment counts for a set of
// agents. The controller fetches at most one snapshot per distinct agent set
// per run.
type RecencyProvider interface {
	Recency(ctx context.Context, agents []domain.AgentID) (domain.RecencySnapshot, error)
}
