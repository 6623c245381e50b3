// Package search calls the managed semantic search index and applies the
// query validation and retry rules the public surface depends on.
package search

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

	"github.com/google/uuid"

	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/retry"
)

// RetryAfterHint is the retry-after seconds reported when the backend
// stays unavailable through the whole schedule
const RetryAfterHint = 30

const requestTimeout = 30 * time.Second

// errRejected marks upstream 4xx responses, which are never retried
var errRejected = errors.New("search backend rejected the request")

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results []struct {
		Content  string  `json:"content"`
		Score    float64 `json:"score"`
		Metadata struct {
			Path        string `json:"path"`
			ContentType string `json:"content_type"`
		} `json:"metadata"`
	} `json:"results"`
}

// Client queries the managed search index
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	schedule retry.Schedule
	logger   *slog.Logger
}

// NewClient creates a search client. apiKey may be empty when the backend
// is unauthenticated.
func NewClient(endpoint, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: requestTimeout},
		schedule: retry.DefaultSchedule(),
		logger:   logger,
	}
}

// Search validates q locally, then queries the index with bounded retries.
// Validation failures are INVALID_QUERY and never reach the backend. An
// unavailable backend surfaces as SERVICE_UNAVAILABLE with a retry hint
// after the schedule is exhausted. An empty result set is a success.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.RawSearchResult, error) {
	if err := domain.ValidateSearchQuery(q); err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	start := time.Now()
	attempts := 0

	results, err := retry.Do(ctx, c.schedule, func() ([]domain.RawSearchResult, error) {
		attempts++
		return c.searchOnce(ctx, q, correlationID)
	}, func(err error, attempt int, delay time.Duration) {
		c.logger.Warn("search request failed, retrying",
			"correlation_id", correlationID,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error(),
		)
	})
	if err != nil {
		if errors.Is(err, errRejected) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError,
				"search backend rejected the query", err)
		}
		return nil, domain.NewServiceUnavailable("search backend unavailable", RetryAfterHint, err)
	}

	c.logger.Info("search completed",
		"correlation_id", correlationID,
		"query", q.Query,
		"result_count", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
		"attempts", attempts,
	)

	return results, nil
}

func (c *Client) searchOnce(ctx context.Context, q domain.SearchQuery, correlationID string) ([]domain.RawSearchResult, error) {
	body, err := json.Marshal(searchRequest{Query: q.Query, Limit: q.Limit})
	if err != nil {
		return nil, retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, retry.Permanent(fmt.Errorf("%w: status %d: %s", errRejected, resp.StatusCode, snippet))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search backend returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]domain.RawSearchResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		results = append(results, domain.RawSearchResult{
			Content:    r.Content,
			Score:      r.Score,
			SourcePath: r.Metadata.Path,
		})
	}
	return results, nil
}
