package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canne/csm-router/internal/domain"
)

func TestRenderBalancedBooks(t *testing.T) {
	output := Render(domain.BalanceReport{
		Agents:    4,
		MeanCount: 21.5,
		Imbalance: domain.ImbalanceReport{
			CountStd:     1.12,
			NeedinessStd: 3.40,
			RevenueStd:   250.00,
			PriorityStd:  2.75,
		},
		RecentHour: 2,
		RecentDay:  9,
	})

	assert.Contains(t, output, "CSM Book Balance")
	assert.Contains(t, output, "agents: 4")
	assert.Contains(t, output, "mean book size: 21.5")
	assert.Contains(t, output, "Account count std dev: 1.12")
	assert.Contains(t, output, "2 in last hour, 9 in last 24 hours")
	assert.Contains(t, output, "within the balance threshold")
	assert.NotContains(t, output, "manual rebalancing")
}

func TestRenderFlagsImbalance(t *testing.T) {
	output := Render(domain.BalanceReport{
		Agents:    3,
		MeanCount: 20,
		Imbalance: domain.ImbalanceReport{CountStd: 8.5},
	})

	assert.Contains(t, output, "consider manual rebalancing")
	assert.NotContains(t, output, "within the balance threshold")
}
