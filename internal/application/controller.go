package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/canne/csm-router/internal/config"
	"github.com/canne/csm-router/internal/domain"
	"github.com/canne/csm-router/internal/metrics"
	"github.com/canne/csm-router/internal/ports"
)

// Controller drives one routing run end to end: build a proposal, submit it
// for review, and either finalize, apply reviewer substitutions, or rebuild,
// bounded by the configured retry budget. Book state is owned here; simulated
// copies made during scoring are discarded unless an attempt finalizes.
type Controller struct {
	cfg      config.Config
	provider ports.DataProvider
	recency  ports.RecencyProvider
	reviewer ports.Reviewer
	store    ports.RecommendationStore
	clock    ports.Clock
	logger   *slog.Logger

	scorer    *Scorer
	ranker    *AlternativeRanker
	governor  *ExclusionGovernor
	optimizer *BatchOptimizer
}

func NewController(cfg config.Config, provider ports.DataProvider, recency ports.RecencyProvider, reviewer ports.Reviewer, store ports.RecommendationStore, clock ports.Clock, logger *slog.Logger) *Controller {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	scorer := NewScorer(cfg)
	return &Controller{
		cfg:       cfg,
		provider:  provider,
		recency:   recency,
		reviewer:  reviewer,
		store:     store,
		clock:     clock,
		logger:    logger,
		scorer:    scorer,
		ranker:    NewAlternativeRanker(scorer),
		governor:  NewExclusionGovernor(cfg),
		optimizer: NewBatchOptimizer(cfg),
	}
}

// RunOnce fetches pending accounts and current books from the provider and
// routes everything that is waiting.
func (c *Controller) RunOnce(ctx context.Context) (domain.RunResult, error) {
	accounts, err := c.provider.PendingAccounts(ctx)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("fetch pending accounts: %w", err)
	}
	if len(accounts) == 0 {
		c.logger.Info("no accounts awaiting assignment")
		return domain.RunResult{Assignments: map[domain.AccountID]domain.AgentID{}}, nil
	}

	minAccounts := c.cfg.MinAccountsFor(accounts[0].SegmentKey())
	books, err := c.provider.Books(ctx, minAccounts)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("fetch agent books: %w", err)
	}

	return c.Assign(ctx, accounts, books)
}

// AssignAccount routes a single pending account by id.
func (c *Controller) AssignAccount(ctx context.Context, id domain.AccountID) (domain.RunResult, error) {
	accounts, err := c.provider.PendingAccounts(ctx)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("fetch pending accounts: %w", err)
	}

	for _, account := range accounts {
		if account.ID != id {
			continue
		}
		books, err := c.provider.Books(ctx, c.cfg.MinAccountsFor(account.SegmentKey()))
		if err != nil {
			return domain.RunResult{}, fmt.Errorf("fetch agent books: %w", err)
		}
		return c.Assign(ctx, []domain.Account{account}, books)
	}
	return domain.RunResult{}, fmt.Errorf("account %s is not awaiting assignment", id)
}

// Assign routes the given batch against the given books. Finalized placements
// are committed to books in order; everything else leaves books untouched.
func (c *Controller) Assign(ctx context.Context, accounts []domain.Account, books domain.Books) (domain.RunResult, error) {
	runID := uuid.NewString()
	accounts = dedupeAccounts(accounts)
	agents := sortedAgents(books)

	if len(agents) == 0 {
		c.logger.Warn("no eligible agents at all, reporting batch unassignable", "run_id", runID, "accounts", len(accounts))
		return c.unassignableResult(runID, accounts), nil
	}

	cache := newRecencyCache(c.recency)
	snapshot, err := cache.snapshot(ctx, agents)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("fetch recency snapshot: %w", err)
	}

	sessionUsed := map[domain.AgentID]struct{}{}

	for attempt := 0; ; attempt++ {
		proposal, err := c.buildProposal(ctx, accounts, books, agents, snapshot, sessionUsed)
		if err != nil {
			return domain.RunResult{}, err
		}
		for _, agent := range proposal.Assignments {
			sessionUsed[agent] = struct{}{}
		}

		if len(proposal.Assignments) == 0 {
			c.logger.Warn("proposal placed nothing, finalizing as unassignable", "run_id", runID, "attempt", attempt)
			result := c.unassignableResult(runID, accounts)
			result.Attempts = attempt + 1
			return result, nil
		}

		if err := c.storeRecommendations(ctx, accounts, proposal, runID); err != nil {
			return domain.RunResult{}, err
		}

		verdict, err := c.reviewer.Review(ctx, c.reviewRequest(accounts, books, proposal, runID, attempt))
		if err != nil {
			return domain.RunResult{}, fmt.Errorf("review proposal: %w", err)
		}

		if !verdict.RequiresRerun() {
			c.logger.Info("reviewer approved proposal", "run_id", runID, "attempt", attempt, "confidence", verdict.Confidence)
			return c.finalize(ctx, accounts, books, proposal, nil, verdict, runID, attempt, false)
		}

		substitutions := c.containedSubstitutions(proposal, verdict, runID)
		if len(substitutions) > 0 {
			c.logger.Info("applying reviewer substitutions", "run_id", runID, "attempt", attempt, "count", len(substitutions))
			return c.finalize(ctx, accounts, books, proposal, substitutions, verdict, runID, attempt, false)
		}

		if attempt >= c.cfg.MaxRetries {
			c.logger.Warn("retries exhausted, force finalizing last proposal",
				"run_id", runID, "attempts", attempt+1, "feedback", verdict.Feedback)
			metrics.ForceFinalizedTotal.Inc()
			return c.finalize(ctx, accounts, books, proposal, nil, verdict, runID, attempt, true)
		}

		metrics.RetriesTotal.Inc()
		c.logger.Info("reviewer rejected proposal, rebuilding",
			"run_id", runID, "attempt", attempt, "feedback", verdict.Feedback)
	}
}

// buildProposal runs the exclusion governor and then either the single-item
// ranker or the batch optimizer with greedy fallback. The returned proposal is
// a fresh value every time; retries never patch a previous one.
func (c *Controller) buildProposal(ctx context.Context, accounts []domain.Account, books domain.Books, agents []domain.AgentID, snapshot domain.RecencySnapshot, sessionUsed map[domain.AgentID]struct{}) (domain.Proposal, error) {
	batchSize := len(accounts)
	excluded := c.governor.Excluded(batchSize, sessionUsed, agents, snapshot)
	eligible := make([]domain.AgentID, 0, len(agents))
	for _, agent := range agents {
		if _, ok := excluded[agent]; !ok {
			eligible = append(eligible, agent)
		}
	}
	if len(excluded) > 0 {
		c.logger.Info("governor excluded agents", "count", len(excluded), "batch_size", batchSize)
	}

	if batchSize == 1 {
		return c.singleProposal(accounts[0], eligible, books, snapshot), nil
	}

	assignments, err := c.optimizer.Optimize(accounts, eligible, books, snapshot)
	if err == nil {
		return c.batchProposal(accounts, assignments, eligible, books, snapshot), nil
	}
	if !errors.Is(err, domain.ErrSolverInfeasible) {
		return domain.Proposal{}, err
	}

	metrics.SolverFallbacksTotal.Inc()
	c.logger.Warn("batch optimization infeasible, falling back to greedy placement", "batch_size", batchSize)
	return c.greedyProposal(accounts, books, agents, snapshot, sessionUsed), nil
}

func (c *Controller) singleProposal(account domain.Account, eligible []domain.AgentID, books domain.Books, snapshot domain.RecencySnapshot) domain.Proposal {
	proposal := domain.Proposal{
		Assignments: map[domain.AccountID]domain.AgentID{},
		Alternates:  map[domain.AccountID][]domain.CandidateScore{},
		Scores:      map[domain.AccountID]float64{},
		Method:      domain.MethodSingleOptimized,
	}

	ranked := c.ranker.Rank(account, eligible, books, snapshot)
	pick, alternates := c.pickWithAlternates(account, ranked, books, "")
	if pick == nil {
		proposal.Unassignable = []domain.AccountID{account.ID}
		return proposal
	}

	proposal.Assignments[account.ID] = pick.Agent
	proposal.Scores[account.ID] = pick.Cost
	proposal.Alternates[account.ID] = alternates
	return proposal
}

func (c *Controller) batchProposal(accounts []domain.Account, assignments map[domain.AccountID]domain.AgentID, eligible []domain.AgentID, books domain.Books, snapshot domain.RecencySnapshot) domain.Proposal {
	proposal := domain.Proposal{
		Assignments: assignments,
		Alternates:  map[domain.AccountID][]domain.CandidateScore{},
		Scores:      map[domain.AccountID]float64{},
		Method:      domain.MethodBatchOptimized,
	}

	// Disclose ranked alternates per assignment so the reviewer has legal
	// substitution targets for batch proposals too.
	for _, account := range accounts {
		chosen, ok := assignments[account.ID]
		if !ok {
			continue
		}
		ranked := c.ranker.Rank(account, eligible, books, snapshot)
		for _, candidate := range ranked {
			if candidate.Agent == chosen {
				proposal.Scores[account.ID] = candidate.Cost
				break
			}
		}
		_, alternates := c.pickWithAlternates(account, ranked, books, chosen)
		proposal.Alternates[account.ID] = alternates
	}
	return proposal
}

// greedyProposal places accounts one at a time, committing each delta to a
// working copy of the books before scoring the next account.
func (c *Controller) greedyProposal(accounts []domain.Account, books domain.Books, agents []domain.AgentID, snapshot domain.RecencySnapshot, sessionUsed map[domain.AgentID]struct{}) domain.Proposal {
	proposal := domain.Proposal{
		Assignments: map[domain.AccountID]domain.AgentID{},
		Alternates:  map[domain.AccountID][]domain.CandidateScore{},
		Scores:      map[domain.AccountID]float64{},
		Method:      domain.MethodGreedyFallback,
	}

	working := books.Clone()
	used := make(map[domain.AgentID]struct{}, len(sessionUsed))
	for agent := range sessionUsed {
		used[agent] = struct{}{}
	}

	for _, account := range accounts {
		excluded := c.governor.Excluded(len(accounts), used, agents, snapshot)
		eligible := make([]domain.AgentID, 0, len(agents))
		for _, agent := range agents {
			if _, ok := excluded[agent]; !ok {
				eligible = append(eligible, agent)
			}
		}

		ranked := c.ranker.Rank(account, eligible, working, snapshot)
		pick, alternates := c.pickWithAlternates(account, ranked, working, "")
		if pick == nil {
			proposal.Unassignable = append(proposal.Unassignable, account.ID)
			continue
		}

		proposal.Assignments[account.ID] = pick.Agent
		proposal.Scores[account.ID] = pick.Cost
		proposal.Alternates[account.ID] = alternates
		working[pick.Agent] = working[pick.Agent].SimulateAdd(account)
		used[pick.Agent] = struct{}{}
	}
	return proposal
}

// pickWithAlternates selects the best under-capacity candidate and the next K
// under-capacity candidates as disclosed alternates. Capacity is a hard line
// here: an at-capacity agent is never finalized, it can only ever surface as
// unassignable. With skip set, no pick is made and every other under-capacity
// candidate competes for the alternates list.
func (c *Controller) pickWithAlternates(account domain.Account, ranked []domain.CandidateScore, books domain.Books, skip domain.AgentID) (*domain.CandidateScore, []domain.CandidateScore) {
	capacity := c.scorer.Capacity(account)

	var pick *domain.CandidateScore
	alternates := make([]domain.CandidateScore, 0, c.cfg.AlternatesK)
	for i := range ranked {
		candidate := ranked[i]
		if candidate.Agent == skip || books[candidate.Agent].Count >= capacity {
			continue
		}
		if pick == nil && skip == "" {
			pick = &candidate
			continue
		}
		if len(alternates) < c.cfg.AlternatesK {
			alternates = append(alternates, candidate)
		}
	}
	return pick, alternates
}

// containedSubstitutions filters the verdict's substitutions down to the ones
// naming a disclosed alternate. Anything else is a contract violation: logged,
// counted, and ignored in favor of the original assignment.
func (c *Controller) containedSubstitutions(proposal domain.Proposal, verdict domain.ReviewVerdict, runID string) map[domain.AccountID]domain.AgentID {
	valid := map[domain.AccountID]domain.AgentID{}
	for account, agent := range verdict.Substitutions {
		if _, ok := proposal.Assignments[account]; !ok {
			c.logger.Warn("reviewer substitution for unknown account ignored", "run_id", runID, "account", account)
			metrics.SubstitutionViolationsTotal.Inc()
			continue
		}
		if !proposal.AllowsSubstitution(account, agent) {
			c.logger.Warn("reviewer substitution outside disclosed alternates ignored",
				"run_id", runID, "account", account, "agent", agent)
			metrics.SubstitutionViolationsTotal.Inc()
			continue
		}
		valid[account] = agent
	}
	return valid
}

// finalize commits the proposal (with any substitutions applied) to the books
// and the store, in account order. A store failure stops further commits but
// already-committed placements stand.
func (c *Controller) finalize(ctx context.Context, accounts []domain.Account, books domain.Books, proposal domain.Proposal, substitutions map[domain.AccountID]domain.AgentID, verdict domain.ReviewVerdict, runID string, attempt int, forced bool) (domain.RunResult, error) {
	result := domain.RunResult{
		RunID:          runID,
		Assignments:    map[domain.AccountID]domain.AgentID{},
		Unassignable:   proposal.Unassignable,
		ForceFinalized: forced,
		Attempts:       attempt + 1,
		Feedback:       verdict.Feedback,
		Method:         proposal.Method,
	}

	for _, account := range accounts {
		original, ok := proposal.Assignments[account.ID]
		if !ok {
			continue
		}

		agent := original
		if substituted, ok := substitutions[account.ID]; ok {
			agent = substituted
		}

		var err error
		if agent != original {
			err = c.store.RecordSubstitution(ctx, account.ID, original, agent, runID, verdict.Feedback)
		} else {
			err = c.store.MarkAssigned(ctx, account.ID, agent, runID, verdict.Feedback)
		}
		if err != nil {
			// At-least-once: earlier commits stand, nothing further is attempted.
			return result, fmt.Errorf("persist assignment %s: %w", account.ID, err)
		}

		books.Commit(agent, account)
		result.Assignments[account.ID] = agent
		metrics.AssignmentsTotal.WithLabelValues(string(proposal.Method)).Inc()
		c.logger.Info("assignment finalized",
			"run_id", runID, "account", account.ID, "agent", agent,
			"method", proposal.Method, "substituted", agent != original, "forced", forced)
	}

	for _, account := range result.Unassignable {
		metrics.UnassignableTotal.Inc()
		c.logger.Warn("account unassignable", "run_id", runID, "account", account)
	}

	imbalance := domain.Imbalance(books)
	metrics.BookCountStdDev.Set(imbalance.CountStd)
	metrics.BookNeedinessStdDev.Set(imbalance.NeedinessStd)

	return result, nil
}

func (c *Controller) storeRecommendations(ctx context.Context, accounts []domain.Account, proposal domain.Proposal, runID string) error {
	for _, account := range accounts {
		agent, ok := proposal.Assignments[account.ID]
		if !ok {
			continue
		}
		rec := domain.Recommendation{
			AccountID: account.ID,
			Agent:     agent,
			Score:     proposal.Scores[account.ID],
			Method:    proposal.Method,
			RunID:     runID,
			BatchSize: len(accounts),
			CreatedAt: c.clock.Now(),
		}
		if err := c.store.StoreRecommendation(ctx, rec); err != nil {
			return fmt.Errorf("store recommendation for %s: %w", account.ID, err)
		}
	}
	return nil
}

// reviewRequest packages everything the reviewer needs: the mapping, account
// attributes, pre/post book summaries, projected imbalance and any concerns
// the engine itself noticed.
func (c *Controller) reviewRequest(accounts []domain.Account, books domain.Books, proposal domain.Proposal, runID string, attempt int) domain.ReviewRequest {
	accountsByID := make(map[domain.AccountID]domain.Account, len(accounts))
	for _, account := range accounts {
		accountsByID[account.ID] = account
	}

	projected := books.Clone()
	summaries := map[domain.AgentID]domain.BookSummary{}
	for accountID, agent := range proposal.Assignments {
		projected[agent] = projected[agent].SimulateAdd(accountsByID[accountID])
	}
	for _, agent := range sortedAgents(books) {
		if projected[agent] == books[agent] {
			continue
		}
		summaries[agent] = domain.BookSummary{
			Agent:        agent,
			Tenure:       books[agent].Tenure,
			TenureMonths: books[agent].TenureMonths,
			Before:       books[agent],
			After:        projected[agent],
		}
	}

	return domain.ReviewRequest{
		Proposal:  proposal,
		Accounts:  accountsByID,
		Books:     summaries,
		Imbalance: domain.Imbalance(projected),
		Concerns:  c.identifyConcerns(accounts, books, proposal),
		RunID:     runID,
		Attempt:   attempt,
	}
}

// identifyConcerns flags patterns the reviewer should weigh: batch piling on
// one agent, risky accounts landing on inexperienced agents, near-capacity
// placements.
func (c *Controller) identifyConcerns(accounts []domain.Account, books domain.Books, proposal domain.Proposal) []string {
	var concerns []string

	perAgent := map[domain.AgentID]int{}
	for _, agent := range proposal.Assignments {
		perAgent[agent]++
	}
	for _, agent := range sortedAgents(books) {
		if perAgent[agent] > 3 {
			concerns = append(concerns, fmt.Sprintf("agent %s receives %d accounts in this batch", agent, perAgent[agent]))
		}
	}

	for _, account := range accounts {
		agent, ok := proposal.Assignments[account.ID]
		if !ok {
			continue
		}
		book := books[agent]
		if account.Health == domain.HealthRed && book.Tenure <= domain.TenureJunior {
			concerns = append(concerns, fmt.Sprintf("red account %s assigned to %s tenure agent %s", account.ID, book.Tenure, agent))
		}
		if account.Neediness >= highNeedinessScore && book.TenureMonths < 6 {
			concerns = append(concerns, fmt.Sprintf("high neediness account %s assigned to agent %s with %d months tenure", account.ID, agent, book.TenureMonths))
		}
		capacity := c.scorer.Capacity(account)
		if book.Count+perAgent[agent] > capacity-capacityWarnMargin {
			concerns = append(concerns, fmt.Sprintf("agent %s is within %d accounts of capacity", agent, capacityWarnMargin))
		}
	}
	return concerns
}

// BalanceReport summarizes current book balance and recent assignment volume.
func (c *Controller) BalanceReport(ctx context.Context) (domain.BalanceReport, error) {
	books, err := c.provider.Books(ctx, c.cfg.DefaultLimit.MinAccountsForEligibility)
	if err != nil {
		return domain.BalanceReport{}, fmt.Errorf("fetch agent books: %w", err)
	}

	agents := sortedAgents(books)
	snapshot, err := c.recency.Recency(ctx, agents)
	if err != nil {
		return domain.BalanceReport{}, fmt.Errorf("fetch recency snapshot: %w", err)
	}

	report := domain.BalanceReport{
		Agents:    len(books),
		MeanCount: domain.MeanCount(books),
		Imbalance: domain.Imbalance(books),
	}
	for _, agent := range agents {
		rec := snapshot.For(agent)
		report.RecentHour += rec.LastHour
		report.RecentDay += rec.Last24Hours
	}
	return report, nil
}

func (c *Controller) unassignableResult(runID string, accounts []domain.Account) domain.RunResult {
	result := domain.RunResult{
		RunID:       runID,
		Assignments: map[domain.AccountID]domain.AgentID{},
	}
	for _, account := range accounts {
		result.Unassignable = append(result.Unassignable, account.ID)
		metrics.UnassignableTotal.Inc()
	}
	return result
}

// recencyCache memoizes recency snapshots per distinct agent set so a run
// issues at most one provider query per set instead of one per candidate.
type recencyCache struct {
	provider ports.RecencyProvider
	entries  map[string]domain.RecencySnapshot
}

func newRecencyCache(provider ports.RecencyProvider) *recencyCache {
	return &recencyCache{provider: provider, entries: map[string]domain.RecencySnapshot{}}
}

func (c *recencyCache) snapshot(ctx context.Context, agents []domain.AgentID) (domain.RecencySnapshot, error) {
	ids := make([]string, len(agents))
	for i, agent := range agents {
		ids[i] = string(agent)
	}
	sort.Strings(ids)
	key := strings.Join(ids, "|")

	if snapshot, ok := c.entries[key]; ok {
		return snapshot, nil
	}
	snapshot, err := c.provider.Recency(ctx, agents)
	if err != nil {
		return nil, err
	}
	c.entries[key] = snapshot
	return snapshot, nil
}

func sortedAgents(books domain.Books) []domain.AgentID {
	agents := make([]domain.AgentID, 0, len(books))
	for agent := range books {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i] < agents[j] })
	return agents
}

func dedupeAccounts(accounts []domain.Account) []domain.Account {
	seen := make(map[domain.AccountID]struct{}, len(accounts))
	out := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		if _, ok := seen[account.ID]; ok {
			continue
		}
		seen[account.ID] = struct{}{}
		out = append(out, account)
	}
	return out
}
