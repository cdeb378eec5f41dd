package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canne/csm-router/internal/domain"
)

func TestOptimizeSpreadsBatchAcrossAgents(t *testing.T) {
	t.Parallel()

	optimizer := NewBatchOptimizer(testConfig())
	accounts := []domain.Account{
		{ID: "acct-1", Health: domain.HealthGreen, Neediness: 3},
		{ID: "acct-2", Health: domain.HealthGreen, Neediness: 3},
	}
	books := domain.Books{
		"a1": {Count: 10, TenureMonths: 12},
		"a2": {Count: 10, TenureMonths: 12},
	}

	assignments, err := optimizer.Optimize(accounts, []domain.AgentID{"a1", "a2"}, books, nil)
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	assert.NotEqual(t, assignments["acct-1"], assignments["acct-2"])
}

func TestOptimizeRespectsCapacity(t *testing.T) {
	t.Parallel()

	optimizer := NewBatchOptimizer(testConfig())
	accounts := []domain.Account{
		{ID: "acct-1", Neediness: 2},
		{ID: "acct-2", Neediness: 2},
		{ID: "acct-3", Neediness: 2},
	}
	// Every agent sits one below the ceiling, so each can absorb exactly one.
	books := domain.Books{
		"a1": {Count: 84},
		"a2": {Count: 84},
		"a3": {Count: 84},
	}

	assignments, err := optimizer.Optimize(accounts, []domain.AgentID{"a1", "a2", "a3"}, books, nil)
	require.NoError(t, err)
	require.Len(t, assignments, 3)

	perAgent := map[domain.AgentID]int{}
	for _, agent := range assignments {
		perAgent[agent]++
	}
	for agent, count := range perAgent {
		assert.LessOrEqual(t, count, 1, "agent %s over its remaining capacity", agent)
	}
}

func TestOptimizeInfeasibleWhenCapacityExhausted(t *testing.T) {
	t.Parallel()

	optimizer := NewBatchOptimizer(testConfig())
	accounts := []domain.Account{
		{ID: "acct-1"},
		{ID: "acct-2"},
	}
	books := domain.Books{"a1": {Count: 84}}

	_, err := optimizer.Optimize(accounts, []domain.AgentID{"a1"}, books, nil)
	assert.ErrorIs(t, err, domain.ErrSolverInfeasible)
}

func TestOptimizeEmptyBatch(t *testing.T) {
	t.Parallel()

	optimizer := NewBatchOptimizer(testConfig())
	assignments, err := optimizer.Optimize(nil, []domain.AgentID{"a1"}, domain.Books{}, nil)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestOptimizeNoEligibleAgents(t *testing.T) {
	t.Parallel()

	optimizer := NewBatchOptimizer(testConfig())
	_, err := optimizer.Optimize([]domain.Account{{ID: "acct-1"}}, nil, domain.Books{}, nil)
	assert.ErrorIs(t, err, domain.ErrSolverInfeasible)
}

func TestOptimizeAvoidsRecentlyLoadedAgent(t *testing.T) {
	t.Parallel()

	optimizer := NewBatchOptimizer(testConfig())
	accounts := []domain.Account{
		{ID: "acct-1", Neediness: 2},
		{ID: "acct-2", Neediness: 2},
	}
	books := domain.Books{
		"busy": {Count: 10, TenureMonths: 12},
		"calm": {Count: 10, TenureMonths: 12},
	}
	// The recency penalty on the busy agent dwarfs the balance cost of
	// doubling up on the calm one.
	recency := domain.RecencySnapshot{
		"busy": {LastHour: 2, Last4Hours: 2, Last24Hours: 2, Last7Days: 2},
	}

	assignments, err := optimizer.Optimize(accounts, []domain.AgentID{"busy", "calm"}, books, recency)
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	assert.Equal(t, domain.AgentID("calm"), assignments["acct-1"])
	assert.Equal(t, domain.AgentID("calm"), assignments["acct-2"])
}
