// Package enrich turns raw search hits into fully linked results, tolerating
// missing or slow artifact metadata.
package enrich

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/reposift/reposift/internal/domain"
)

const (
	// metadataTimeout bounds the per-result metadata lookup
	metadataTimeout = 100 * time.Millisecond

	// slowThreshold marks enrichments worth warning about
	slowThreshold = 100 * time.Millisecond
)

// placeholderName stands in for the repository when a source path cannot
// be parsed
const placeholderName = "unknown"

// MetadataStore looks up the metadata envelope of a stored summary
type MetadataStore interface {
	HeadArtifact(ctx context.Context, org, repo string) (domain.ArtifactMetadata, error)
}

// Enricher derives links and metadata for search results. A nil metadata
// store disables envelope lookups; results then carry no metadata.
type Enricher struct {
	meta   MetadataStore
	pool   *ants.Pool
	logger *slog.Logger
}

// NewEnricher creates an Enricher with a worker pool sized to the maximum
// result count a single query can return.
func NewEnricher(meta MetadataStore, logger *slog.Logger) (*Enricher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(domain.MaxSearchLimit)
	if err != nil {
		return nil, err
	}

	return &Enricher{meta: meta, pool: pool, logger: logger}, nil
}

// Release frees the worker pool
func (e *Enricher) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Enrich converts one raw hit into an EnrichedResult. It never fails: an
// unparseable source path yields a minimal placeholder result, and a
// metadata lookup failure yields a result without metadata.
func (e *Enricher) Enrich(ctx context.Context, raw domain.RawSearchResult) domain.EnrichedResult {
	start := time.Now()
	result := e.enrichOne(ctx, raw)
	elapsed := time.Since(start)

	e.logger.Debug("enriched result",
		"source_path", raw.SourcePath,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	if elapsed > slowThreshold {
		e.logger.Warn("slow result enrichment",
			"source_path", raw.SourcePath,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}

	return result
}

func (e *Enricher) enrichOne(ctx context.Context, raw domain.RawSearchResult) domain.EnrichedResult {
	ref, ok := domain.ParseArtifactKey(raw.SourcePath)
	if !ok {
		e.logger.Warn("source path does not match artifact grammar",
			"source_path", raw.SourcePath)
		return domain.EnrichedResult{
			Content:    raw.Content,
			Score:      raw.Score,
			Repository: domain.RepositoryRef{FullName: placeholderName},
			SourcePath: raw.SourcePath,
		}
	}

	result := domain.EnrichedResult{
		Content: raw.Content,
		Score:   raw.Score,
		Repository: domain.RepositoryRef{
			Org:      ref.Org,
			Name:     ref.Repo,
			FullName: ref.FullName(),
		},
		Links:      buildLinks(ref.Org, ref.Repo),
		SourcePath: raw.SourcePath,
	}

	if e.meta == nil {
		return result
	}

	metaCtx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	meta, err := e.meta.HeadArtifact(metaCtx, ref.Org, ref.Repo)
	if err != nil {
		e.logger.Warn("metadata unavailable for search result",
			"repository", ref.FullName(),
			"error", err.Error(),
		)
		return result
	}

	result.Metadata = &meta
	return result
}

// EnrichAll enriches every raw hit concurrently and returns results in
// input order. Individual degradations never affect sibling results.
func (e *Enricher) EnrichAll(ctx context.Context, raws []domain.RawSearchResult) []domain.EnrichedResult {
	results := make([]domain.EnrichedResult, len(raws))
	if len(raws) == 0 {
		return results
	}

	start := time.Now()

	var wg sync.WaitGroup
	for i := range raws {
		i := i // copy per iteration: the go directive predates per-iteration loop vars
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = e.Enrich(ctx, raws[i])
		}
		if err := e.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	total := time.Since(start)
	e.logger.Info("enriched search results",
		"count", len(raws),
		"total_ms", total.Milliseconds(),
		"avg_ms", (total / time.Duration(len(raws))).Milliseconds(),
	)

	return results
}

func buildLinks(org, repo string) domain.ResultLinks {
	o := url.PathEscape(org)
	r := url.PathEscape(repo)
	return domain.ResultLinks{
		Repository:  "https://github.com/" + o + "/" + r,
		CloudEditor: "https://github.dev/" + o + "/" + r,
		Workspace:   "https://codespaces.new/" + o + "/" + r,
	}
}
