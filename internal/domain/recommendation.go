package domain

import "time"

// Recommendation is the idempotent persistence record for one proposed
// placement. The (AccountID, RunID, Method) tuple is the dedupe key: storing
// the same tuple twice is a no-op.
type Recommendation struct {
	AccountID AccountID
	Agent     AgentID
	Score     float64
	Method    Method
	RunID     string
	BatchSize int
	CreatedAt time.Time
}

// RunResult is the terminal outcome of one controller run.
type RunResult struct {
	RunID          string
	Assignments    map[AccountID]AgentID
	Unassignable   []AccountID
	ForceFinalized bool
	Attempts       int
	Feedback       string
	Method         Method
}

// BalanceReport summarizes current book balance for operators.
type BalanceReport struct {
	Agents     int
	MeanCount  float64
	Imbalance  ImbalanceReport
	RecentHour int
	RecentDay  int
}

// NeedsRebalancing flags book spread above 20% of the mean book size.
func (r BalanceReport) NeedsRebalancing() bool {
	return r.MeanCount > 0 && r.Imbalance.CountStd > r.MeanCount*0.2
}
