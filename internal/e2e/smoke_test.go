package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canne/csm-router/internal/adapters/reviewer"
	"github.com/canne/csm-router/internal/application"
	"github.com/canne/csm-router/internal/config"
	"github.com/canne/csm-router/internal/domain"
)

// The smoke test wires the real controller and the real HTTP reviewer client
// against an in-memory warehouse and a scripted review service, and drives a
// full reject-then-approve routing run.

type memWarehouse struct {
	accounts        []domain.Account
	books           domain.Books
	recency         domain.RecencySnapshot
	recommendations []domain.Recommendation
	assigned        map[domain.AccountID]domain.AgentID
}

func (w *memWarehouse) PendingAccounts(_ context.Context) ([]domain.Account, error) {
	return w.accounts, nil
}

func (w *memWarehouse) Books(_ context.Context, _ int) (domain.Books, error) {
	return w.books, nil
}

func (w *memWarehouse) Recency(_ context.Context, _ []domain.AgentID) (domain.RecencySnapshot, error) {
	return w.recency, nil
}

func (w *memWarehouse) StoreRecommendation(_ context.Context, rec domain.Recommendation) error {
	w.recommendations = append(w.recommendations, rec)
	return nil
}

func (w *memWarehouse) MarkAssigned(_ context.Context, account domain.AccountID, agent domain.AgentID, _ string, _ string) error {
	if w.assigned == nil {
		w.assigned = map[domain.AccountID]domain.AgentID{}
	}
	w.assigned[account] = agent
	return nil
}

func (w *memWarehouse) RecordSubstitution(_ context.Context, account domain.AccountID, _, revised domain.AgentID, _ string, _ string) error {
	return w.MarkAssigned(nil, account, revised, "", "")
}

func smokeConfig() config.Config {
	return config.Config{
		ReviewTimeout: time.Second,
		MaxRetries:    2,
		AlternatesK:   5,
		Weights: config.ScoringWeights{
			CountVariance:     0.20,
			NeedinessVariance: 0.25,
			RevenueVariance:   0.15,
			PriorityVariance:  0.20,
		},
		Batch: config.BatchWeights{
			Count:     0.25,
			Neediness: 0.25,
			Revenue:   0.20,
			Priority:  0.20,
			Recency:   0.10,
		},
		Tiers: []config.ExclusionTier{
			{MaxBatchSize: 5, Lookback: 2 * time.Hour, MaxRecent: 0},
			{MaxBatchSize: 0, Lookback: 4 * time.Hour, MaxRecent: 5},
		},
		Limits:       map[string]config.SegmentLimits{},
		DefaultLimit: config.SegmentLimits{MaxAccountsPerAgent: 85, MinAccountsForEligibility: 5},
	}
}

func TestSmokeRejectThenApprove(t *testing.T) {
	warehouse := &memWarehouse{
		accounts: []domain.Account{
			{ID: "acct-1", Name: "Acme", Health: domain.HealthRed, Neediness: 9, Revenue: 1200, Priority: 8},
		},
		books: domain.Books{
			"agent-senior": {Count: 18, Neediness: 60, TenureMonths: 36, Tenure: domain.TenureSenior},
			"agent-mid":    {Count: 20, Neediness: 66, TenureMonths: 12, Tenure: domain.TenureMid},
			"agent-new":    {Count: 8, Neediness: 20, TenureMonths: 1, Tenure: domain.TenureNew},
		},
	}

	reviews := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reviews++
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotEmpty(t, payload["run_id"])

		verdict := map[string]any{"approve": true, "confidence_score": 85, "feedback": "looks balanced"}
		if reviews == 1 {
			verdict = map[string]any{"approve": false, "confidence_score": 40, "feedback": "spread the load"}
		}
		require.NoError(t, json.NewEncoder(w).Encode(verdict))
	}))
	defer server.Close()

	review := reviewer.New(server.URL, server.Client(), time.Second, nil)
	ctrl := application.NewController(smokeConfig(), warehouse, warehouse, review, warehouse, nil, nil)

	result, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, reviews)
	assert.Equal(t, 2, result.Attempts)
	assert.False(t, result.ForceFinalized)
	assert.Equal(t, "looks balanced", result.Feedback)

	require.Len(t, result.Assignments, 1)
	agent := result.Assignments["acct-1"]
	assert.Equal(t, agent, warehouse.assigned["acct-1"])
	assert.NotEqual(t, domain.AgentID("agent-new"), agent, "a red high-neediness account never lands on a brand new agent")
	assert.Len(t, warehouse.recommendations, 2)
}
