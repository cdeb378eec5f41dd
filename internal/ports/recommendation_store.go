package ports

import (
	"context"

	"github.com/canne/csm-router/internal/domain"
)

// RecommendationStore persists proposed and finalized placements.
type RecommendationStore interface {
	// StoreRecommendation records a proposed placement. Re-storing the same
	// (account, run, method) tuple is a no-op.
	StoreRecommendation(ctx context.Context, rec domain.Recommendation) error
	// MarkAssigned flags a stored recommendation as the finalized assignment
	// and attaches the reviewer's feedback.
	MarkAssigned(ctx context.Context, account domain.AccountID, agent domain.AgentID, runID, feedback string) error
	// RecordSubstitution persists a reviewer-directed change of agent for an
	// account, keeping the original recommendation for audit.
	RecordSubstitution(ctx context.Context, account domain.AccountID, original, revised domain.AgentID, runID, feedback string) error
}
