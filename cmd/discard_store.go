package cmd

import (
	"context"

	"github.com/canne/csm-router/internal/domain"
	"github.com/canne/csm-router/internal/ports"
)

// discardStore backs --dry-run: the pipeline runs end to end but nothing is
// persisted.
type discardStore struct{}

var _ ports.RecommendationStore = discardStore{}

func (discardStore) StoreRecommendation(context.Context, domain.Recommendation) error {
	return nil
}

func (discardStore) MarkAssigned(context.Context, domain.AccountID, domain.AgentID, string, string) error {
	return nil
}

func (discardStore) RecordSubstitution(context.Context, domain.AccountID, domain.AgentID, domain.AgentID, string, string) error {
	return nil
}
