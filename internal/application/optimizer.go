package application

import (
	"fmt"
	"sort"

	"github.com/canne/csm-router/internal/config"
	"github.com/canne/csm-router/internal/domain"
)

// BatchOptimizer places a whole batch of accounts at once by solving a 0/1
// integer program: every account gets exactly one agent, no agent exceeds its
// capacity ceiling, and the objective trades off count/neediness/revenue/
// priority balance against recency penalties.
type BatchOptimizer struct {
	cfg config.Config
}

func NewBatchOptimizer(cfg config.Config) *BatchOptimizer {
	return &BatchOptimizer{cfg: cfg}
}

// Optimize returns the batch assignment, or domain.ErrSolverInfeasible when
// the constraint set admits no solution; the caller is expected to fall back
// to greedy sequential placement in that case.
func (o *BatchOptimizer) Optimize(accounts []domain.Account, eligible []domain.AgentID, books domain.Books, recency domain.RecencySnapshot) (map[domain.AccountID]domain.AgentID, error) {
	n := len(accounts)
	m := len(eligible)
	if n == 0 {
		return map[domain.AccountID]domain.AgentID{}, nil
	}
	if m == 0 {
		return nil, domain.ErrSolverInfeasible
	}

	agents := make([]domain.AgentID, len(eligible))
	copy(agents, eligible)
	sort.Slice(agents, func(i, j int) bool { return agents[i] < agents[j] })

	remaining := o.remainingCapacity(accounts, agents, books)

	prog := o.formulate(accounts, agents, books, recency, remaining)

	solution, _, err := prog.solve()
	if err != nil {
		if err == errMilpInfeasible {
			return nil, domain.ErrSolverInfeasible
		}
		return nil, fmt.Errorf("batch optimization: %w", err)
	}

	assignments := make(map[domain.AccountID]domain.AgentID, n)
	for i, account := range accounts {
		for j, agent := range agents {
			if solution[i*m+j] > 0.5 {
				assignments[account.ID] = agent
				break
			}
		}
	}
	if len(assignments) != n {
		return nil, domain.ErrSolverInfeasible
	}
	return assignments, nil
}

// remainingCapacity computes how many new accounts each agent can absorb.
// With mixed segments in one batch the most restrictive ceiling applies.
func (o *BatchOptimizer) remainingCapacity(accounts []domain.Account, agents []domain.AgentID, books domain.Books) []float64 {
	capacity := 0
	for _, account := range accounts {
		c := o.cfg.CapacityFor(account.SegmentKey())
		if capacity == 0 || c < capacity {
			capacity = c
		}
	}

	remaining := make([]float64, len(agents))
	for j, agent := range agents {
		free := capacity - books[agent].Count
		if free < 0 {
			free = 0
		}
		remaining[j] = float64(free)
	}
	return remaining
}

// formulate builds the integer program. Variable layout: x[i*m+j] first, then
// per-agent deviation pairs (dev+, dev-) for count, neediness, revenue and
// priority in that order. Absolute deviations from the mean are linearized
// with the standard dev+ - dev- split; the mean of each projected metric is a
// constant because the batch total is fixed.
func (o *BatchOptimizer) formulate(accounts []domain.Account, agents []domain.AgentID, books domain.Books, recency domain.RecencySnapshot, remaining []float64) *milp {
	n := len(accounts)
	m := len(agents)

	devBase := n * m
	numVars := n*m + 8*m
	prog := newMILP(numVars)

	w := o.cfg.Batch
	for i := range accounts {
		for j, agent := range agents {
			idx := i*m + j
			prog.binary[idx] = true
			prog.objective[idx] = w.Recency * recency.For(agent).Penalty()
		}
	}

	devWeights := []float64{w.Count, w.Neediness, w.Revenue, w.Priority}
	for metric, weight := range devWeights {
		for j := 0; j < m; j++ {
			prog.objective[devPos(devBase, metric, m, j)] = weight
			prog.objective[devNeg(devBase, metric, m, j)] = weight
		}
	}

	// Exactly one agent per account.
	for i := range accounts {
		coeffs := make(map[int]float64, m)
		for j := 0; j < m; j++ {
			coeffs[i*m+j] = 1
		}
		prog.addRow(coeffs, opEQ, 1)
	}

	// Per-agent capacity.
	for j := range agents {
		coeffs := make(map[int]float64, n)
		for i := range accounts {
			coeffs[i*m+j] = 1
		}
		prog.addRow(coeffs, opLE, remaining[j])
	}

	// Deviation definitions: projected_j - mean = dev+_j - dev-_j.
	metrics := []struct {
		current func(domain.BookState) float64
		delta   func(domain.Account) float64
	}{
		{func(b domain.BookState) float64 { return float64(b.Count) }, func(domain.Account) float64 { return 1 }},
		{func(b domain.BookState) float64 { return b.Neediness }, func(a domain.Account) float64 { return a.Neediness }},
		{func(b domain.BookState) float64 { return b.Revenue }, func(a domain.Account) float64 { return a.Revenue }},
		{func(b domain.BookState) float64 { return b.Priority }, func(a domain.Account) float64 { return a.Priority }},
	}

	for metric, def := range metrics {
		var total float64
		for _, agent := range agents {
			total += def.current(books[agent])
		}
		for _, account := range accounts {
			total += def.delta(account)
		}
		mean := total / float64(m)

		for j, agent := range agents {
			coeffs := make(map[int]float64, n+2)
			for i, account := range accounts {
				coeffs[i*m+j] = def.delta(account)
			}
			coeffs[devPos(devBase, metric, m, j)] = -1
			coeffs[devNeg(devBase, metric, m, j)] = 1
			prog.addRow(coeffs, opEQ, mean-def.current(books[agent]))
		}
	}

	return prog
}

func devPos(base, metric, m, j int) int {
	return base + metric*2*m + j
}

func devNeg(base, metric, m, j int) int {
	return base + metric*2*m + m + j
}
