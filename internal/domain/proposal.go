package domain

// Method tags how an assignment was produced.
type Method string

const (
	MethodSingleOptimized Method = "single_optimized"
	MethodBatchOptimized  Method = "batch_optimized"
	MethodGreedyFallback  Method = "greedy_fallback"
)

// ScoreBreakdown itemizes the cost terms behind a candidate score.
type ScoreBreakdown struct {
	Balance       float64
	Capacity      float64
	Health        float64
	Tenure        float64
	Overload      float64
	Recency       float64
	Concentration float64
}

func (b ScoreBreakdown) Total() float64 {
	return b.Balance + b.Capacity + b.Health + b.Tenure + b.Overload + b.Recency + b.Concentration
}

// CandidateScore is one agent's evaluated cost for a specific account.
type CandidateScore struct {
	Agent     AgentID
	Cost      float64
	Breakdown ScoreBreakdown
}

// Proposal is one optimization attempt's account-to-agent mapping. A new value
// replaces it wholesale on every retry; it is never patched in place.
type Proposal struct {
	Assignments map[AccountID]AgentID
	// Alternates holds, per account, the ranked runner-up candidates. Reviewer
	// substitutions are only honored when they name one of these agents.
	Alternates   map[AccountID][]CandidateScore
	Scores       map[AccountID]float64
	Method       Method
	Unassignable []AccountID
}

// AllowsSubstitution reports whether agent was disclosed as an alternate for
// the account.
func (p Proposal) AllowsSubstitution(account AccountID, agent AgentID) bool {
	for _, alt := range p.Alternates[account] {
		if alt.Agent == agent {
			return true
		}
	}
	return false
}

// BookSummary is the pre/post placement view of an agent's book disclosed to
// the reviewer.
type BookSummary struct {
	Agent        AgentID
	Tenure       Tenure
	TenureMonths int
	Before       BookState
	After        BookState
}

// ReviewRequest is the full payload submitted to the external reviewer.
type ReviewRequest struct {
	Proposal  Proposal
	Accounts  map[AccountID]Account
	Books     map[AgentID]BookSummary
	Imbalance ImbalanceReport
	Concerns  []string
	RunID     string
	Attempt   int
}
