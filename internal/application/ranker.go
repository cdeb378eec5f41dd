package application

import (
	"sort"

	"github.com/canne/csm-router/internal/domain"
)

// AlternativeRanker scores every eligible agent for a single account and
// orders them by ascending cost. The best entry is the recommendation; the
// next K are the only agents a reviewer may substitute in.
type AlternativeRanker struct {
	scorer *Scorer
}

func NewAlternativeRanker(scorer *Scorer) *AlternativeRanker {
	return &AlternativeRanker{scorer: scorer}
}

// Rank evaluates all eligible agents. An empty eligible set yields an empty
// list: the caller treats that as unassignable, not as an error. Ties break
// on agent id for determinism.
func (r *AlternativeRanker) Rank(account domain.Account, eligible []domain.AgentID, books domain.Books, recency domain.RecencySnapshot) []domain.CandidateScore {
	if len(eligible) == 0 {
		return nil
	}

	scores := make([]domain.CandidateScore, 0, len(eligible))
	for _, agent := range eligible {
		scores = append(scores, r.scorer.Score(account, agent, books, recency))
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Cost == scores[j].Cost {
			return scores[i].Agent < scores[j].Agent
		}
		return scores[i].Cost < scores[j].Cost
	})

	return scores
}
