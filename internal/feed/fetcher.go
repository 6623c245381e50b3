// Package feed fetches the public repository feed that seeds every ingest
// run.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/retry"
)

// DefaultFeedURL is the cross-government open-source repository scraper feed
const DefaultFeedURL = "https://uk-x-gov-software-community.github.io/xgov-opensource-repo-scraper/repos.json"

const requestTimeout = 30 * time.Second

// entry mirrors one feed object
type entry struct {
	FullName string   `json:"full_name"`
	HTMLURL  string   `json:"html_url"`
	PushedAt string   `json:"pushed_at"`
	Language string   `json:"language"`
	Topics   []string `json:"topics"`
}

// Fetcher retrieves and decodes the repository feed
type Fetcher struct {
	url      string
	client   *http.Client
	logger   *slog.Logger
	schedule retry.Schedule
}

// NewFetcher creates a Fetcher. An empty url selects DefaultFeedURL.
func NewFetcher(url string, logger *slog.Logger) *Fetcher {
	if url == "" {
		url = DefaultFeedURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		url:      url,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
		schedule: retry.DefaultSchedule(),
	}
}

// Fetch downloads the feed and returns its valid entries. Transport
// failures and bad statuses are retried on the shared schedule; exhaustion
// is a FEED_ERROR, which aborts the run. Malformed entries are skipped with
// a warning and never fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.RepositoryRecord, error) {
	records, err := retry.Do(ctx, f.schedule, func() ([]domain.RepositoryRecord, error) {
		return f.fetchOnce(ctx)
	}, func(err error, attempt int, delay time.Duration) {
		f.logger.Warn("feed fetch failed, retrying",
			"feed_url", f.url,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error(),
		)
	})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeFeed, "repository feed could not be fetched", err)
	}

	f.logger.Info("fetched repository feed", "feed_url", f.url, "total_repos", len(records))
	return records, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]domain.RepositoryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	return f.toRecords(entries), nil
}

func (f *Fetcher) toRecords(entries []entry) []domain.RepositoryRecord {
	records := make([]domain.RepositoryRecord, 0, len(entries))
	for i, e := range entries {
		pushedAt, err := time.Parse(time.RFC3339, e.PushedAt)
		if err != nil {
			f.logger.Warn("skipping feed entry with bad pushed_at",
				"index", i, "full_name", e.FullName, "pushed_at", e.PushedAt)
			continue
		}

		rec, err := domain.NewRepositoryRecord(e.FullName, e.HTMLURL, pushedAt)
		if err != nil {
			f.logger.Warn("skipping malformed feed entry",
				"index", i, "full_name", e.FullName, "error", err.Error())
			continue
		}
		rec.Language = e.Language
		rec.Topics = e.Topics

		if err := domain.ValidateRepositoryRecord(rec); err != nil {
			f.logger.Warn("skipping malformed feed entry",
				"index", i, "full_name", e.FullName, "error", err.Error())
			continue
		}

		records = append(records, rec)
	}
	return records
}
