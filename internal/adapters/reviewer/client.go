// Package reviewer submits proposals to the external review service and
// parses its verdicts. The service fronts an LLM, so responses are validated
// defensively rather than trusted.
package reviewer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/canne/csm-router/internal/domain"
	"github.com/canne/csm-router/internal/ports"
)

const defaultTimeout = 60 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

var _ ports.Reviewer = (*Client)(nil)

func New(baseURL string, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, timeout: timeout, logger: logger}
}

// Review posts the proposal and returns the reviewer's verdict. A timeout is
// translated into a rejected verdict with no substitutions so the caller's
// retry logic applies; only transport failures surface as errors.
func (c *Client) Review(ctx context.Context, req domain.ReviewRequest) (domain.ReviewVerdict, error) {
	body, err := json.Marshal(newReviewPayload(req))
	if err != nil {
		return domain.ReviewVerdict{}, fmt.Errorf("encode review request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/review", bytes.NewReader(body))
	if err != nil {
		return domain.ReviewVerdict{}, fmt.Errorf("build review request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("reviewer timed out, treating as rejection", "run_id", req.RunID, "timeout", c.timeout)
			return domain.RejectedVerdict("reviewer timed out"), nil
		}
		return domain.ReviewVerdict{}, fmt.Errorf("%w: %v", domain.ErrReviewerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ReviewVerdict{}, fmt.Errorf("%w: unexpected status %d", domain.ErrReviewerUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ReviewVerdict{}, fmt.Errorf("read review response: %w", err)
	}

	verdict, ok := parseVerdict(data)
	if !ok {
		c.logger.Warn("unparseable reviewer response, treating as rejection", "run_id", req.RunID)
		return domain.RejectedVerdict("unparseable reviewer response"), nil
	}
	return verdict, nil
}

// parseVerdict decodes the verdict, tolerating prose around the JSON object:
// LLM-backed services sometimes wrap the payload in commentary.
func parseVerdict(data []byte) (domain.ReviewVerdict, bool) {
	payload, ok := decodeVerdictPayload(data)
	if !ok {
		start := bytes.IndexByte(data, '{')
		end := bytes.LastIndexByte(data, '}')
		if start < 0 || end <= start {
			return domain.ReviewVerdict{}, false
		}
		payload, ok = decodeVerdictPayload(data[start : end+1])
		if !ok {
			return domain.ReviewVerdict{}, false
		}
	}

	verdict := domain.ReviewVerdict{
		Approve:        payload.Approve,
		Confidence:     payload.Confidence,
		Feedback:       payload.Feedback,
		CriticalIssues: payload.CriticalIssues,
		Warnings:       payload.Warnings,
	}
	if len(payload.Substitutions) > 0 {
		verdict.Substitutions = make(map[domain.AccountID]domain.AgentID, len(payload.Substitutions))
		for account, agent := range payload.Substitutions {
			verdict.Substitutions[domain.AccountID(account)] = domain.AgentID(agent)
		}
	}
	return verdict, true
}

func decodeVerdictPayload(data []byte) (verdictPayload, bool) {
	var payload verdictPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return verdictPayload{}, false
	}
	return payload, true
}
