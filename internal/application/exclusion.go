package application

import (
	"time"

	"github.com/canne/csm-router/internal/config"
	"github.com/canne/csm-router/internal/domain"
)

// ExclusionGovernor throttles repeat assignment to the same agent. Agents
// already used in the current session are always excluded; beyond that, a
// batch-size keyed tier decides how much recent activity an agent may have
// before sitting this batch out.
type ExclusionGovernor struct {
	cfg config.Config
}

func NewExclusionGovernor(cfg config.Config) *ExclusionGovernor {
	return &ExclusionGovernor{cfg: cfg}
}

// Excluded returns the agents ineligible for this batch. Safety valve: if the
// exclusion would cover the entire eligible set, no agent is excluded at all
// rather than deadlocking the pipeline.
func (g *ExclusionGovernor) Excluded(batchSize int, used map[domain.AgentID]struct{}, eligible []domain.AgentID, recency domain.RecencySnapshot) map[domain.AgentID]struct{} {
	tier := g.cfg.TierFor(batchSize)
	excluded := make(map[domain.AgentID]struct{})

	for _, agent := range eligible {
		if _, ok := used[agent]; ok {
			excluded[agent] = struct{}{}
			continue
		}
		if recentCount(recency.For(agent), tier.Lookback) > tier.MaxRecent {
			excluded[agent] = struct{}{}
		}
	}

	if len(excluded) >= len(eligible) {
		return map[domain.AgentID]struct{}{}
	}
	return excluded
}

// recentCount picks the narrowest trailing window that covers the lookback.
// The snapshot only carries 1h/4h/24h/7d counts, so intermediate lookbacks
// round up to the next window.
func recentCount(rec domain.RecencyRecord, lookback time.Duration) int {
	switch {
	case lookback <= time.Hour:
		return rec.LastHour
	case lookback <= 4*time.Hour:
		return rec.Last4Hours
	case lookback <= 24*time.Hour:
		return rec.Last24Hours
	default:
		return rec.Last7Days
	}
}
