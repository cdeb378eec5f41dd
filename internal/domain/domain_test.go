package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHealth(t *testing.T) {
	t.Parallel()

	h, err := ParseHealth(" Red ")
	require.NoError(t, err)
	assert.Equal(t, HealthRed, h)

	h, err = ParseHealth("GREEN")
	require.NoError(t, err)
	assert.Equal(t, HealthGreen, h)

	h, err = ParseHealth("churned")
	require.ErrorIs(t, err, ErrUnknownHealth)
	assert.Equal(t, HealthYellow, h)
}

func TestParseTenure(t *testing.T) {
	t.Parallel()

	tenure, err := ParseTenure("expert")
	require.NoError(t, err)
	assert.Equal(t, TenureExpert, tenure)

	tenure, err = ParseTenure("wizard")
	require.ErrorIs(t, err, ErrUnknownTenure)
	assert.Equal(t, TenureMid, tenure)
}

func TestTenureFromMonths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TenureNew, TenureFromMonths(0))
	assert.Equal(t, TenureNew, TenureFromMonths(2))
	assert.Equal(t, TenureJunior, TenureFromMonths(3))
	assert.Equal(t, TenureMid, TenureFromMonths(6))
	assert.Equal(t, TenureMid, TenureFromMonths(23))
	assert.Equal(t, TenureSenior, TenureFromMonths(24))
	assert.Equal(t, TenureExpert, TenureFromMonths(48))
}

func TestAccountSegmentKey(t *testing.T) {
	t.Parallel()

	a := Account{Segment: "Residential & Construction", Level: "Corporate"}
	assert.Equal(t, "residential_corporate", a.SegmentKey())

	a = Account{Segment: "Commercial", Level: "SMB"}
	assert.Equal(t, "commercial_smb", a.SegmentKey())

	a = Account{Segment: "", Level: "Corporate"}
	assert.Equal(t, "", a.SegmentKey())
}

func TestSimulateAddLeavesReceiverUnchanged(t *testing.T) {
	t.Parallel()

	book := BookState{Count: 3, Neediness: 12, Revenue: 900, Priority: 6, HealthMix: HealthMix{Green: 3}}
	after := book.SimulateAdd(Account{Health: HealthRed, Neediness: 8, Revenue: 100, Priority: 4})

	assert.Equal(t, 3, book.Count)
	assert.Equal(t, HealthMix{Green: 3}, book.HealthMix)

	assert.Equal(t, 4, after.Count)
	assert.Equal(t, 20.0, after.Neediness)
	assert.Equal(t, 1000.0, after.Revenue)
	assert.Equal(t, 10.0, after.Priority)
	assert.Equal(t, HealthMix{Red: 1, Green: 3}, after.HealthMix)
}

func TestBooksCommit(t *testing.T) {
	t.Parallel()

	books := Books{"a1": {Count: 1}}
	books.Commit("a1", Account{Health: HealthYellow, Neediness: 5})

	assert.Equal(t, 2, books["a1"].Count)
	assert.Equal(t, 5.0, books["a1"].Neediness)
	assert.Equal(t, 1, books["a1"].HealthMix.Yellow)
}

func TestBooksCloneIsIndependent(t *testing.T) {
	t.Parallel()

	books := Books{"a1": {Count: 1}}
	clone := books.Clone()
	clone.Commit("a1", Account{})

	assert.Equal(t, 1, books["a1"].Count)
	assert.Equal(t, 2, clone["a1"].Count)
}

func TestHealthMixShare(t *testing.T) {
	t.Parallel()

	mix := HealthMix{Red: 1, Yellow: 1, Green: 2}
	assert.InDelta(t, 0.25, mix.Share(HealthRed), 1e-9)
	assert.InDelta(t, 0.5, mix.Share(HealthGreen), 1e-9)
	assert.Zero(t, HealthMix{}.Share(HealthRed))
}

func TestImbalance(t *testing.T) {
	t.Parallel()

	books := Books{
		"a1": {Count: 10, Neediness: 40},
		"a2": {Count: 14, Neediness: 40},
	}
	report := Imbalance(books)

	assert.InDelta(t, 4.0, report.CountVariance, 1e-9)
	assert.InDelta(t, 2.0, report.CountStd, 1e-9)
	assert.Zero(t, report.NeedinessVariance)

	assert.Zero(t, Imbalance(Books{}).CountVariance)
}

func TestMeanCount(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 12.0, MeanCount(Books{"a1": {Count: 10}, "a2": {Count: 14}}), 1e-9)
	assert.Zero(t, MeanCount(Books{}))
}

func TestRecencyPenaltyQuadratic(t *testing.T) {
	t.Parallel()

	assert.Zero(t, RecencyRecord{}.Penalty())

	one := RecencyRecord{LastHour: 1, Last4Hours: 1, Last24Hours: 1, Last7Days: 1}.Penalty()
	two := RecencyRecord{LastHour: 2, Last4Hours: 2, Last24Hours: 2, Last7Days: 2}.Penalty()
	assert.InDelta(t, 1e6, one, 1e-6)
	assert.InDelta(t, 4e6, two, 1e-6)

	// Cumulative windows: one assignment 3 hours ago counts in the 4h and
	// 24h windows but not the 1h window.
	stale := RecencyRecord{Last4Hours: 1, Last24Hours: 1, Last7Days: 1}.Penalty()
	assert.InDelta(t, 1e5, stale, 1e-6)
}

func TestRecencyPenaltyWeeklyOverage(t *testing.T) {
	t.Parallel()

	within := RecencyRecord{Last7Days: 5}.Penalty()
	over := RecencyRecord{Last7Days: 8}.Penalty()
	assert.Zero(t, within)
	assert.InDelta(t, 150.0, over, 1e-9)
}

func TestRecencyPenaltyHighNeediness(t *testing.T) {
	t.Parallel()

	assert.Zero(t, RecencyRecord{AvgNeediness: 7}.Penalty())
	assert.InDelta(t, 20.0, RecencyRecord{AvgNeediness: 7.5}.Penalty(), 1e-9)
}

func TestRecencySnapshotFor(t *testing.T) {
	t.Parallel()

	snap := RecencySnapshot{"a1": {LastHour: 2}}
	assert.Equal(t, 2, snap.For("a1").LastHour)
	assert.Zero(t, snap.For("a2").LastHour)
}

func TestReviewVerdictRequiresRerun(t *testing.T) {
	t.Parallel()

	assert.False(t, ReviewVerdict{Approve: true, Confidence: 90}.RequiresRerun())
	assert.True(t, ReviewVerdict{Approve: false, Confidence: 90}.RequiresRerun())
	assert.True(t, ReviewVerdict{Approve: true, Confidence: 59}.RequiresRerun())
	assert.True(t, ReviewVerdict{Approve: true, Confidence: 90, CriticalIssues: []string{"red concentration"}}.RequiresRerun())
}

func TestRejectedVerdict(t *testing.T) {
	t.Parallel()

	v := RejectedVerdict("reviewer timed out")
	assert.False(t, v.Approve)
	assert.Zero(t, v.Confidence)
	assert.Equal(t, "reviewer timed out", v.Feedback)
	assert.True(t, v.RequiresRerun())
}

func TestProposalAllowsSubstitution(t *testing.T) {
	t.Parallel()

	p := Proposal{Alternates: map[AccountID][]CandidateScore{
		"acct-1": {{Agent: "a2"}, {Agent: "a3"}},
	}}
	assert.True(t, p.AllowsSubstitution("acct-1", "a2"))
	assert.False(t, p.AllowsSubstitution("acct-1", "a9"))
	assert.False(t, p.AllowsSubstitution("acct-2", "a2"))
}

func TestScoreBreakdownTotal(t *testing.T) {
	t.Parallel()

	b := ScoreBreakdown{Balance: 1, Capacity: 2, Health: 3, Tenure: 4, Overload: 5, Recency: 6, Concentration: 7}
	assert.InDelta(t, 28.0, b.Total(), 1e-9)
}

func TestBalanceReportNeedsRebalancing(t *testing.T) {
	t.Parallel()

	assert.False(t, BalanceReport{MeanCount: 10, Imbalance: ImbalanceReport{CountStd: 1.9}}.NeedsRebalancing())
	assert.True(t, BalanceReport{MeanCount: 10, Imbalance: ImbalanceReport{CountStd: 2.1}}.NeedsRebalancing())
	assert.False(t, BalanceReport{MeanCount: 0, Imbalance: ImbalanceReport{CountStd: 5}}.NeedsRebalancing())
}
