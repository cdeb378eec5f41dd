package domain

// HealthMix counts an agent's book by health segment.
type HealthMix struct {
	Red    int
	Yellow int
	Green  int
}

func (m HealthMix) Total() int {
	return m.Red + m.Yellow + m.Green
}

// Share returns the fraction of the book in the given segment. An empty book
// has no concentration in any segment.
func (m HealthMix) Share(h Health) float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	switch h {
	case HealthRed:
		return float64(m.Red) / float64(total)
	case HealthYellow:
		return float64(m.Yellow) / float64(total)
	case HealthGreen:
		return float64(m.Green) / float64(total)
	}
	return 0
}

func (m HealthMix) with(h Health) HealthMix {
	switch h {
	case HealthRed:
		m.Red++
	case HealthYellow:
		m.Yellow++
	case HealthGreen:
		m.Green++
	}
	return m
}

// BookState is the aggregate workload of a single agent.
type BookState struct {
	Count        int
	Neediness    float64
	Revenue      float64
	Priority     float64
	HealthMix    HealthMix
	Tenure       Tenure
	TenureMonths int
}

// SimulateAdd returns the book as it would look with the account placed on it.
// The receiver is unchanged.
func (b BookState) SimulateAdd(a Account) BookState {
	b.Count++
	b.Neediness += a.Neediness
	b.Revenue += a.Revenue
	b.Priority += a.Priority
	b.HealthMix = b.HealthMix.with(a.Health)
	return b
}

// Books maps every eligible agent to its current book.
type Books map[AgentID]BookState

func (b Books) Clone() Books {
	out := make(Books, len(b))
	for agent, book := range b {
		out[agent] = book
	}
	return out
}

// Commit applies a finalized placement to the real book.
func (b Books) Commit(agent AgentID, a Account) {
	b[agent] = b[agent].SimulateAdd(a)
}
