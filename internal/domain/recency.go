package domain

// Quadratic window bases. The ordering contract is load-bearing: the 1-hour
// base must dominate the 4-hour base, which must dominate the 24-hour base,
// and all three must dominate the balance and health terms.
const (
	recencyBaseHour = 1e6
	recencyBase4h   = 1e5
	recencyBase24h  = 1e4

	weeklyGrace          = 5
	weeklyOveragePenalty = 50

	highNeedinessAverage = 7
	highNeedinessPenalty = 20
)

// RecencyRecord counts an agent's recommendations in trailing windows, plus
// the average neediness of recently assigned accounts. Window counts are
// cumulative: Last4Hours includes LastHour, and so on.
type RecencyRecord struct {
	LastHour     int
	Last4Hours   int
	Last24Hours  int
	Last7Days    int
	AvgNeediness float64
}

// Penalty converts recent assignment volume into a scoring cost. Quadratic
// scaling makes a second assignment inside a window dramatically more
// expensive than the first, spreading work without a hard cap.
func (r RecencyRecord) Penalty() float64 {
	n1 := float64(max(r.LastHour, 0))
	n4 := float64(max(r.Last4Hours-r.LastHour, 0))
	n24 := float64(max(r.Last24Hours-r.Last4Hours, 0))

	penalty := recencyBaseHour*n1*n1 + recencyBase4h*n4*n4 + recencyBase24h*n24*n24

	if over := r.Last7Days - weeklyGrace; over > 0 {
		penalty += float64(over) * weeklyOveragePenalty
	}
	if r.AvgNeediness > highNeedinessAverage {
		penalty += highNeedinessPenalty
	}
	return penalty
}

// RecencySnapshot is a read-only per-run view of recency records. Missing
// agents have no recent activity.
type RecencySnapshot map[AgentID]RecencyRecord

func (s RecencySnapshot) For(agent AgentID) RecencyRecord {
	return s[agent]
}
