package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canne/csm-router/internal/domain"
)

func TestRankOrdersByAscendingCost(t *testing.T) {
	t.Parallel()

	ranker := NewAlternativeRanker(NewScorer(testConfig()))
	account := domain.Account{ID: "acct-1", Health: domain.HealthRed, Neediness: 9}
	books := domain.Books{
		"new":    {Count: 20, Tenure: domain.TenureNew, TenureMonths: 1},
		"expert": {Count: 20, Tenure: domain.TenureExpert, TenureMonths: 60},
		"mid":    {Count: 20, Tenure: domain.TenureMid, TenureMonths: 12},
	}

	ranked := ranker.Rank(account, []domain.AgentID{"new", "expert", "mid"}, books, nil)
	require.Len(t, ranked, 3)

	assert.Equal(t, domain.AgentID("expert"), ranked[0].Agent)
	assert.Equal(t, domain.AgentID("mid"), ranked[1].Agent)
	assert.Equal(t, domain.AgentID("new"), ranked[2].Agent)
	assert.LessOrEqual(t, ranked[0].Cost, ranked[1].Cost)
	assert.LessOrEqual(t, ranked[1].Cost, ranked[2].Cost)
}

func TestRankBreaksTiesOnAgentID(t *testing.T) {
	t.Parallel()

	ranker := NewAlternativeRanker(NewScorer(testConfig()))
	account := domain.Account{ID: "acct-1", Health: domain.HealthGreen}
	// Identical books score identically, so order falls back to agent id.
	books := domain.Books{
		"b": {Count: 10, TenureMonths: 12},
		"a": {Count: 10, TenureMonths: 12},
		"c": {Count: 10, TenureMonths: 12},
	}

	ranked := ranker.Rank(account, []domain.AgentID{"b", "a", "c"}, books, nil)
	require.Len(t, ranked, 3)

	assert.Equal(t, domain.AgentID("a"), ranked[0].Agent)
	assert.Equal(t, domain.AgentID("b"), ranked[1].Agent)
	assert.Equal(t, domain.AgentID("c"), ranked[2].Agent)
}

func TestRankEmptyEligibleSet(t *testing.T) {
	t.Parallel()

	ranker := NewAlternativeRanker(NewScorer(testConfig()))
	assert.Nil(t, ranker.Rank(domain.Account{ID: "acct-1"}, nil, domain.Books{}, nil))
}
