package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/retry"
)

func fastSchedule() retry.Schedule {
	return retry.Schedule{Attempts: 3, Initial: time.Millisecond, Multiplier: 2}
}

const backendBody = `{
	"results": [
		{"content": "GOV.UK Frontend contains the code you need...", "score": 0.92, "metadata": {"path": "summaries/alphagov/govuk-frontend/summary.txt", "content_type": "text/plain"}},
		{"content": "A design system for government services", "score": 0.81, "metadata": {"path": "summaries/alphagov/govuk-design-system/summary.txt", "content_type": "text/plain"}}
	]
}`

func validQuery() domain.SearchQuery {
	return domain.SearchQuery{Query: "design system components", Limit: 10}
}

func TestSearchValidatesBeforeCalling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)

	tests := []struct {
		name  string
		query domain.SearchQuery
	}{
		{"TooShort", domain.SearchQuery{Query: "ab", Limit: 10}},
		{"TooLong", domain.SearchQuery{Query: strings.Repeat("q", 501), Limit: 10}},
		{"LimitZero", domain.SearchQuery{Query: "valid query", Limit: 0}},
		{"LimitTooHigh", domain.SearchQuery{Query: "valid query", Limit: 21}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Search(context.Background(), tt.query)
			require.Error(t, err)

			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domain.ErrCodeInvalidQuery, domainErr.Code)
		})
	}

	assert.Equal(t, int32(0), calls.Load(), "invalid queries must never reach the backend")
}

func TestSearchSuccess(t *testing.T) {
	var gotReq searchRequest
	var gotAuth, gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCorrelation = r.Header.Get("X-Correlation-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(backendBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", nil)
	results, err := c.Search(context.Background(), validQuery())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "summaries/alphagov/govuk-frontend/summary.txt", results[0].SourcePath)
	assert.Equal(t, 0.92, results[0].Score)
	assert.Contains(t, results[0].Content, "GOV.UK Frontend")

	assert.Equal(t, "design system components", gotReq.Query)
	assert.Equal(t, 10, gotReq.Limit)
	assert.Equal(t, "Bearer secret-key", gotAuth)

	_, err = uuid.Parse(gotCorrelation)
	assert.NoError(t, err, "correlation id must be a uuid")
}

func TestSearchEmptyResultsIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	results, err := c.Search(context.Background(), validQuery())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRecoversFromTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(backendBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	c.schedule = fastSchedule()

	results, err := c.Search(context.Background(), validQuery())
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int32(3), calls.Load(), "fails twice then succeeds means exactly 3 attempts")
}

func TestSearchUnavailableAfterExhaustion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	c.schedule = fastSchedule()

	_, err := c.Search(context.Background(), validQuery())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "no fourth attempt")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeServiceUnavailable, domainErr.Code)
	assert.Equal(t, RetryAfterHint, domainErr.RetryAfter)
}

func TestSearchDoesNotRetryRejections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	c.schedule = fastSchedule()

	_, err := c.Search(context.Background(), validQuery())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeInternalError, domainErr.Code)
}

func TestSearchRetriesRateLimits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	c.schedule = fastSchedule()

	_, err := c.Search(context.Background(), validQuery())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
