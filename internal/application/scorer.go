package application

import (
	"github.com/canne/csm-router/internal/config"
	"github.com/canne/csm-router/internal/domain"
)

// Penalty magnitudes. The relative ordering is the contract: capacity pressure
// must dominate everything, recency must dominate balance and health terms.
const (
	capacityOverPenalty = 1e6
	capacityNearPenalty = 1e5
	capacityWarnMargin  = 5

	redConcentrationShare   = 0.30
	redConcentrationPenalty = 50
	redNewTenurePenalty     = 80
	redJuniorTenurePenalty  = 40
	redSeniorBonus          = 10

	greenConcentrationShare   = 0.50
	greenConcentrationPenalty = 20
	greenNewAgentShareCeiling = 0.60
	greenNewAgentBonus        = 5

	yellowConcentrationShare   = 0.40
	yellowConcentrationPenalty = 15

	highNeedinessScore        = 8
	highNeedinessNewPenalty   = 60
	highNeedinessYoungPenalty = 30
	highNeedinessExpertBonus  = 15

	newAgentCountThreshold = 40
	newAgentCountPenalty   = 50
	newAgentRecent24hLimit = 2
	newAgentRecentPenalty  = 100

	expertRecencyFactor = 0.7
	juniorRecencyFactor = 1.3

	concentrationAvgNeediness  = 7
	concentrationJuniorPenalty = 50
	concentrationPenalty       = 30
)

// Scorer computes the placement cost of one account on one agent. Lower is
// better. It is a pure function of its inputs; the recency snapshot is taken
// once per run by the controller.
type Scorer struct {
	cfg config.Config
}

func NewScorer(cfg config.Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates placing account on agent given the current books.
func (s *Scorer) Score(account domain.Account, agent domain.AgentID, books domain.Books, recency domain.RecencySnapshot) domain.CandidateScore {
	book := books[agent]
	rec := recency.For(agent)

	breakdown := domain.ScoreBreakdown{
		Balance:       s.balanceTerm(account, agent, books),
		Capacity:      s.capacityTerm(account, book),
		Health:        healthTerm(account, book),
		Tenure:        needinessTenureTerm(account, book),
		Overload:      overloadGuardTerm(book, rec),
		Recency:       tenureScaledRecency(book, rec),
		Concentration: concentrationTerm(account, book, rec),
	}

	return domain.CandidateScore{
		Agent:     agent,
		Cost:      breakdown.Total(),
		Breakdown: breakdown,
	}
}

// Capacity returns the configured ceiling for the account's segment.
func (s *Scorer) Capacity(account domain.Account) int {
	return s.cfg.CapacityFor(account.SegmentKey())
}

// balanceTerm measures the weighted book imbalance after the candidate
// placement, with all other books unchanged.
func (s *Scorer) balanceTerm(account domain.Account, agent domain.AgentID, books domain.Books) float64 {
	simulated := books.Clone()
	simulated[agent] = books[agent].SimulateAdd(account)
	imbalance := domain.Imbalance(simulated)

	w := s.cfg.Weights
	return w.CountVariance*imbalance.CountVariance +
		w.NeedinessVariance*imbalance.NeedinessVariance +
		w.RevenueVariance*imbalance.RevenueVariance +
		w.PriorityVariance*imbalance.PriorityVariance
}

// capacityTerm is zero below the warning threshold and rises steeply enough
// that an at-capacity agent is only ever recommended when no alternative
// exists.
func (s *Scorer) capacityTerm(account domain.Account, book domain.BookState) float64 {
	capacity := s.Capacity(account)
	warn := capacity - capacityWarnMargin

	switch {
	case book.Count >= capacity:
		return capacityOverPenalty * float64(book.Count-capacity+1)
	case book.Count >= warn:
		return capacityNearPenalty * float64(book.Count-warn+1)
	}
	return 0
}

func healthTerm(account domain.Account, book domain.BookState) float64 {
	var term float64
	switch account.Health {
	case domain.HealthRed:
		if book.HealthMix.Share(domain.HealthRed) > redConcentrationShare {
			term += redConcentrationPenalty
		}
		switch book.Tenure {
		case domain.TenureNew:
			term += redNewTenurePenalty
		case domain.TenureJunior:
			term += redJuniorTenurePenalty
		case domain.TenureMid:
			// neutral
		case domain.TenureSenior, domain.TenureExpert:
			term -= redSeniorBonus
		}
	case domain.HealthGreen:
		share := book.HealthMix.Share(domain.HealthGreen)
		if share > greenConcentrationShare {
			term += greenConcentrationPenalty
		}
		if book.Tenure == domain.TenureNew && share < greenNewAgentShareCeiling {
			term -= greenNewAgentBonus
		}
	case domain.HealthYellow:
		if book.HealthMix.Share(domain.HealthYellow) > yellowConcentrationShare {
			term += yellowConcentrationPenalty
		}
	}
	return term
}

func needinessTenureTerm(account domain.Account, book domain.BookState) float64 {
	if account.Neediness < highNeedinessScore {
		return 0
	}
	switch {
	case book.TenureMonths < 3:
		return highNeedinessNewPenalty
	case book.TenureMonths < 6:
		return highNeedinessYoungPenalty
	case book.TenureMonths >= 24:
		return -highNeedinessExpertBonus
	}
	return 0
}

// overloadGuardTerm ramps new agents slowly: a new agent with a full book or
// recent assignment activity is penalized regardless of the account.
func overloadGuardTerm(book domain.BookState, rec domain.RecencyRecord) float64 {
	if book.TenureMonths >= 3 {
		return 0
	}
	var term float64
	if book.Count > newAgentCountThreshold {
		term += newAgentCountPenalty
	}
	if rec.Last24Hours > newAgentRecent24hLimit {
		term += newAgentRecentPenalty
	}
	return term
}

func tenureScaledRecency(book domain.BookState, rec domain.RecencyRecord) float64 {
	penalty := rec.Penalty()
	switch {
	case book.TenureMonths >= 24:
		penalty *= expertRecencyFactor
	case book.TenureMonths < 6:
		penalty *= juniorRecencyFactor
	}
	return penalty
}

func concentrationTerm(account domain.Account, book domain.BookState, rec domain.RecencyRecord) float64 {
	if account.Neediness < highNeedinessScore || rec.AvgNeediness <= concentrationAvgNeediness {
		return 0
	}
	if book.Tenure == domain.TenureNew || book.Tenure == domain.TenureJunior {
		return concentrationJuniorPenalty
	}
	return concentrationPenalty
}
