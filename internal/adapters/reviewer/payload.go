package reviewer

import (
	"sort"

	"github.com/canne/csm-router/internal/domain"
)

// Wire shapes for the review service. Field names follow the service's
// contract, not the domain's.

type reviewPayload struct {
	RunID       string              `json:"run_id"`
	Attempt     int                 `json:"attempt"`
	Method      string              `json:"method"`
	Assignments []assignmentPayload `json:"assignments"`
	Books       []bookPayload       `json:"books"`
	Imbalance   imbalancePayload    `json:"projected_imbalance"`
	Concerns    []string            `json:"identified_concerns,omitempty"`
}

type assignmentPayload struct {
	AccountID   string             `json:"account_id"`
	AccountName string             `json:"account_name,omitempty"`
	Agent       string             `json:"agent"`
	Health      string             `json:"health_segment"`
	Neediness   float64            `json:"neediness_score"`
	Revenue     float64            `json:"revenue"`
	Priority    float64            `json:"priority_score"`
	Score       float64            `json:"optimization_score"`
	Alternates  []alternatePayload `json:"alternates,omitempty"`
}

type alternatePayload struct {
	Agent string  `json:"agent"`
	Score float64 `json:"score"`
}

type bookPayload struct {
	Agent        string     `json:"agent"`
	Tenure       string     `json:"tenure_category"`
	TenureMonths int        `json:"tenure_months"`
	Before       bookCounts `json:"before"`
	After        bookCounts `json:"after"`
}

type bookCounts struct {
	Count     int     `json:"count"`
	Neediness float64 `json:"total_neediness"`
	Revenue   float64 `json:"total_revenue"`
	Priority  float64 `json:"total_priority"`
	Red       int     `json:"red"`
	Yellow    int     `json:"yellow"`
	Green     int     `json:"green"`
}

type imbalancePayload struct {
	CountStd     float64 `json:"count_std"`
	NeedinessStd float64 `json:"neediness_std"`
	RevenueStd   float64 `json:"revenue_std"`
	PriorityStd  float64 `json:"priority_std"`
}

type verdictPayload struct {
	Approve        bool              `json:"approve"`
	Confidence     int               `json:"confidence_score"`
	Feedback       string            `json:"feedback"`
	CriticalIssues []string          `json:"critical_issues"`
	Warnings       []string          `json:"warnings"`
	Substitutions  map[string]string `json:"specific_reassignments"`
}

func newReviewPayload(req domain.ReviewRequest) reviewPayload {
	payload := reviewPayload{
		RunID:    req.RunID,
		Attempt:  req.Attempt,
		Method:   string(req.Proposal.Method),
		Concerns: req.Concerns,
		Imbalance: imbalancePayload{
			CountStd:     req.Imbalance.CountStd,
			NeedinessStd: req.Imbalance.NeedinessStd,
			RevenueStd:   req.Imbalance.RevenueStd,
			PriorityStd:  req.Imbalance.PriorityStd,
		},
	}

	accountIDs := make([]string, 0, len(req.Proposal.Assignments))
	for accountID := range req.Proposal.Assignments {
		accountIDs = append(accountIDs, string(accountID))
	}
	sort.Strings(accountIDs)

	for _, id := range accountIDs {
		accountID := domain.AccountID(id)
		account := req.Accounts[accountID]
		entry := assignmentPayload{
			AccountID:   id,
			AccountName: account.Name,
			Agent:       string(req.Proposal.Assignments[accountID]),
			Health:      account.Health.String(),
			Neediness:   account.Neediness,
			Revenue:     account.Revenue,
			Priority:    account.Priority,
			Score:       req.Proposal.Scores[accountID],
		}
		for _, alternate := range req.Proposal.Alternates[accountID] {
			entry.Alternates = append(entry.Alternates, alternatePayload{
				Agent: string(alternate.Agent),
				Score: alternate.Cost,
			})
		}
		payload.Assignments = append(payload.Assignments, entry)
	}

	agentIDs := make([]string, 0, len(req.Books))
	for agent := range req.Books {
		agentIDs = append(agentIDs, string(agent))
	}
	sort.Strings(agentIDs)

	for _, id := range agentIDs {
		summary := req.Books[domain.AgentID(id)]
		payload.Books = append(payload.Books, bookPayload{
			Agent:        id,
			Tenure:       summary.Tenure.String(),
			TenureMonths: summary.TenureMonths,
			Before:       newBookCounts(summary.Before),
			After:        newBookCounts(summary.After),
		})
	}

	return payload
}

func newBookCounts(book domain.BookState) bookCounts {
	return bookCounts{
		Count:     book.Count,
		Neediness: book.Neediness,
		Revenue:   book.Revenue,
		Priority:  book.Priority,
		Red:       book.HealthMix.Red,
		Yellow:    book.HealthMix.Yellow,
		Green:     book.HealthMix.Green,
	}
}
