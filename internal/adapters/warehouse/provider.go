package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/canne/csm-router/internal/domain"
)

// PendingAccounts returns enriched accounts still awaiting an agent. Rows
// with an unrecognized health segment default to Yellow rather than dropping
// the account.
func (s *Store) PendingAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT account_id, account_name, health_segment, neediness_score,
		       revenue, priority_score, segment, account_level
		FROM pending_accounts
		WHERE account_id NOT IN (SELECT account_id FROM csm_assignments)
		ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("query pending accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var (
			account domain.Account
			health  string
		)
		if err := rows.Scan(&account.ID, &account.Name, &health, &account.Neediness,
			&account.Revenue, &account.Priority, &account.Segment, &account.Level); err != nil {
			return nil, fmt.Errorf("scan pending account: %w", err)
		}

		parsed, err := domain.ParseHealth(health)
		if err != nil {
			if !errors.Is(err, domain.ErrUnknownHealth) {
				return nil, err
			}
			s.logger.Warn("unknown health segment, defaulting to Yellow", "account", account.ID, "health", health)
		}
		account.Health = parsed
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Books aggregates each agent's current workload. Agents below the minimum
// account threshold are not eligible assignment targets and are filtered out.
func (s *Store) Books(ctx context.Context, minAccounts int) (domain.Books, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.agent, a.tenure_months,
		       COUNT(b.account_id),
		       COALESCE(SUM(b.neediness_score), 0),
		       COALESCE(SUM(b.revenue), 0),
		       COALESCE(SUM(b.priority_score), 0),
		       COUNT(b.account_id) FILTER (WHERE b.health_segment = 'Red'),
		       COUNT(b.account_id) FILTER (WHERE b.health_segment = 'Yellow'),
		       COUNT(b.account_id) FILTER (WHERE b.health_segment = 'Green')
		FROM agents a
		LEFT JOIN agent_books b ON b.agent = a.agent
		WHERE a.active
		GROUP BY a.agent, a.tenure_months
		HAVING COUNT(b.account_id) >= $1
		ORDER BY a.agent`, minAccounts)
	if err != nil {
		return nil, fmt.Errorf("query agent books: %w", err)
	}
	defer rows.Close()

	books := domain.Books{}
	for rows.Next() {
		var (
			agent domain.AgentID
			book  domain.BookState
		)
		if err := rows.Scan(&agent, &book.TenureMonths, &book.Count,
			&book.Neediness, &book.Revenue, &book.Priority,
			&book.HealthMix.Red, &book.HealthMix.Yellow, &book.HealthMix.Green); err != nil {
			return nil, fmt.Errorf("scan agent book: %w", err)
		}
		book.Tenure = domain.TenureFromMonths(book.TenureMonths)
		books[agent] = book
	}
	return books, rows.Err()
}

// Recency counts each agent's recommendations over the trailing windows in a
// single query; the controller memoizes the result per run.
func (s *Store) Recency(ctx context.Context, agents []domain.AgentID) (domain.RecencySnapshot, error) {
	ids := make([]string, len(agents))
	for i, agent := range agents {
		ids[i] = string(agent)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT recommended_agent,
		       COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '1 hour'),
		       COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '4 hours'),
		       COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '24 hours'),
		       COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '7 days'),
		       COALESCE(AVG((SELECT neediness_score FROM pending_accounts p
		                     WHERE p.account_id = csm_recommendations.account_id))
		                FILTER (WHERE created_at >= NOW() - INTERVAL '24 hours'), 0)
		FROM csm_recommendations
		WHERE recommended_agent = ANY($1)
		  AND created_at >= NOW() - INTERVAL '7 days'
		GROUP BY recommended_agent`, ids)
	if err != nil {
		return nil, fmt.Errorf("query recency: %w", err)
	}
	defer rows.Close()

	snapshot := domain.RecencySnapshot{}
	for rows.Next() {
		var (
			agent  domain.AgentID
			record domain.RecencyRecord
		)
		if err := rows.Scan(&agent, &record.LastHour, &record.Last4Hours,
			&record.Last24Hours, &record.Last7Days, &record.AvgNeediness); err != nil {
			return nil, fmt.Errorf("scan recency record: %w", err)
		}
		snapshot[agent] = record
	}
	return snapshot, rows.Err()
}
