package warehouse

import (
	"context"
	"fmt"

	"github.com/canne/csm-router/internal/domain"
)

// StoreRecommendation records one proposed placement. The primary key on
// (account_id, run_id, method) makes retried writes a no-op, so retries never
// double count.
func (s *Store) StoreRecommendation(ctx context.Context, rec domain.Recommendation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO csm_recommendations
			(account_id, recommended_agent, optimization_score, method, run_id, batch_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, run_id, method) DO NOTHING`,
		rec.AccountID, rec.Agent, rec.Score, rec.Method, rec.RunID, rec.BatchSize, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// MarkAssigned finalizes a recommendation and upserts the assignment record.
func (s *Store) MarkAssigned(ctx context.Context, account domain.AccountID, agent domain.AgentID, runID, feedback string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE csm_recommendations
		SET was_assigned = TRUE, actual_agent = $3, llm_feedback = $4
		WHERE account_id = $1 AND run_id = $2 AND was_assigned = FALSE`,
		account, runID, agent, feedback); err != nil {
		return fmt.Errorf("finalize recommendation: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO csm_assignments (account_id, agent, assignment_method, llm_feedback)
		VALUES ($1, $2, 'automated_routing', $3)
		ON CONFLICT (account_id) DO UPDATE
		SET agent = EXCLUDED.agent,
		    llm_feedback = EXCLUDED.llm_feedback,
		    last_updated = NOW()`,
		account, agent, feedback); err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit assignment: %w", err)
	}
	return nil
}

// RecordSubstitution persists a reviewer-directed agent change, keeping the
// original recommendation row for audit.
func (s *Store) RecordSubstitution(ctx context.Context, account domain.AccountID, original, revised domain.AgentID, runID, feedback string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO csm_recommendations
			(account_id, recommended_agent, method, run_id, was_assigned, actual_agent, llm_feedback)
		VALUES ($1, $2, 'llm_revised', $3, TRUE, $4, $5)
		ON CONFLICT (account_id, run_id, method) DO UPDATE
		SET actual_agent = EXCLUDED.actual_agent,
		    llm_feedback = EXCLUDED.llm_feedback`,
		account, original, runID, revised, feedback)
	if err != nil {
		return fmt.Errorf("record substitution: %w", err)
	}

	if err := s.MarkAssigned(ctx, account, revised, runID, feedback); err != nil {
		return err
	}
	s.logger.Info("reviewer substitution recorded", "account", account, "original", original, "revised", revised, "run_id", runID)
	return nil
}
