// Package report renders book balance summaries for the terminal.
package report

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/canne/csm-router/internal/domain"
)

func Render(balance domain.BalanceReport) string {
	s := newStyles()

	lines := []string{
		s.title.Render("CSM Book Balance"),
		s.header.Render(fmt.Sprintf("agents: %d  mean book size: %.1f", balance.Agents, balance.MeanCount)),
		s.section.Render(metricLine(s, "Account count std dev", balance.Imbalance.CountStd)),
		metricLine(s, "Neediness std dev", balance.Imbalance.NeedinessStd),
		metricLine(s, "Revenue std dev", balance.Imbalance.RevenueStd),
		metricLine(s, "Priority std dev", balance.Imbalance.PriorityStd),
		s.section.Render(s.metric.Render("Recent assignments: ") +
			s.value.Render(fmt.Sprintf("%d in last hour, %d in last 24 hours", balance.RecentHour, balance.RecentDay))),
	}

	if balance.NeedsRebalancing() {
		lines = append(lines, s.section.Render(s.warning.Render("Account count spread exceeds 20% of mean; consider manual rebalancing")))
	} else {
		lines = append(lines, s.section.Render(s.ok.Render("Books are within the balance threshold")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func metricLine(s styles, name string, value float64) string {
	return s.metric.Render(name+": ") + s.value.Render(fmt.Sprintf("%.2f", value))
}
