// Package ingest drives one worker's share of a repository ingest run:
// fetch the feed, take the partition owned by this worker, and push each
// repository through the cache gate, summarizer and artifact store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reposift/reposift/internal/batch"
	"github.com/reposift/reposift/internal/domain"
)

// progressInterval is how many records pass between progress log lines
const progressInterval = 100

// FeedSource supplies the full repository list for a run
type FeedSource interface {
	Fetch(ctx context.Context) ([]domain.RepositoryRecord, error)
}

// CacheGate decides whether a repository needs processing
type CacheGate interface {
	ShouldProcess(ctx context.Context, rec domain.RepositoryRecord) bool
}

// Summarizer produces the summary text for one repository
type Summarizer interface {
	Summarize(ctx context.Context, rec domain.RepositoryRecord) (string, error)
}

// ArtifactWriter persists a summary with its metadata envelope
type ArtifactWriter interface {
	PutArtifact(ctx context.Context, org, repo, content string, meta domain.ArtifactMetadata) error
}

// FingerprintWriter commits the processed fingerprint for a repository
type FingerprintWriter interface {
	Upsert(ctx context.Context, fp domain.Fingerprint) error
}

// Stats accumulates per-run outcome counts
type Stats struct {
	Assigned  int
	Skipped   int
	Succeeded int
	Failed    int
}

// Options selects this worker's partition and run mode
type Options struct {
	BatchSize int
	Offset    int
	DryRun    bool
}

// Runner executes ingest runs. A nil fingerprint writer disables cache
// commits; the gate then treats every repository as unprocessed.
type Runner struct {
	feed         FeedSource
	gate         CacheGate
	summarizer   Summarizer
	store        ArtifactWriter
	fingerprints FingerprintWriter
	logger       *slog.Logger
}

// NewRunner wires an ingest Runner
func NewRunner(feed FeedSource, gate CacheGate, summarizer Summarizer, store ArtifactWriter, fingerprints FingerprintWriter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		feed:         feed,
		gate:         gate,
		summarizer:   summarizer,
		store:        store,
		fingerprints: fingerprints,
		logger:       logger,
	}
}

// Run executes one ingest pass over this worker's partition. Per-repository
// failures are counted and logged but never abort the run; only an invalid
// partition or an unfetchable feed returns an error.
func (r *Runner) Run(ctx context.Context, opts Options) (Stats, error) {
	var stats Stats

	if err := batch.Validate(opts.BatchSize, opts.Offset); err != nil {
		return stats, err
	}

	logger := r.logger.With("batch_size", opts.BatchSize, "offset", opts.Offset)

	records, err := r.feed.Fetch(ctx)
	if err != nil {
		return stats, err
	}

	indices, err := batch.Assign(len(records), opts.BatchSize, opts.Offset)
	if err != nil {
		return stats, err
	}
	stats.Assigned = len(indices)

	logger.Info("starting ingest run",
		"total_repos", len(records),
		"assigned", stats.Assigned,
		"dry_run", opts.DryRun,
	)

	start := time.Now()
	for n, idx := range indices {
		if err := ctx.Err(); err != nil {
			logger.Warn("ingest run interrupted", "processed", n, "error", err.Error())
			return stats, err
		}

		if n > 0 && n%progressInterval == 0 {
			r.logProgress(logger, n, len(indices), stats, start)
		}

		rec := records[idx]
		if opts.DryRun {
			logger.Info("would process repository",
				"repository", rec.FullName(),
				"index", idx,
			)
			continue
		}

		r.processOne(ctx, logger, rec, &stats)
	}

	logger.Info("ingest run complete",
		"assigned", stats.Assigned,
		"skipped", stats.Skipped,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"dry_run", opts.DryRun,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	return stats, nil
}

func (r *Runner) processOne(ctx context.Context, logger *slog.Logger, rec domain.RepositoryRecord, stats *Stats) {
	if !r.gate.ShouldProcess(ctx, rec) {
		stats.Skipped++
		logger.Info("skipping cached repository", "repository", rec.FullName())
		return
	}

	repoStart := time.Now()

	content, err := r.summarizer.Summarize(ctx, rec)
	if err != nil {
		stats.Failed++
		logger.Warn("repository processing failed",
			"repository", rec.FullName(),
			"stage", "summarize",
			"error", err.Error(),
		)
		return
	}

	meta := domain.ArtifactMetadata{
		PushedAt:    rec.PushedAt,
		SourceURL:   rec.SourceURL,
		ProcessedAt: time.Now().UTC(),
	}
	if err := r.store.PutArtifact(ctx, rec.Owner, rec.Name, content, meta); err != nil {
		stats.Failed++
		logger.Warn("repository processing failed",
			"repository", rec.FullName(),
			"stage", "write",
			"error", err.Error(),
		)
		return
	}

	// Fingerprint commits strictly follow a successful write. A failed
	// commit leaves the repository eligible for reprocessing next run,
	// which is safe; the artifact itself is already stored.
	if r.fingerprints != nil {
		fp := domain.NewFingerprint(rec.Owner, rec.Name, rec.PushedAt, meta.ProcessedAt)
		if err := r.fingerprints.Upsert(ctx, fp); err != nil {
			logger.Warn("fingerprint commit failed",
				"repository", rec.FullName(),
				"error", err.Error(),
			)
		}
	}

	stats.Succeeded++
	logger.Info("processed repository",
		"repository", rec.FullName(),
		"elapsed_ms", time.Since(repoStart).Milliseconds(),
	)
}

func (r *Runner) logProgress(logger *slog.Logger, done, total int, stats Stats, start time.Time) {
	elapsed := time.Since(start)
	avg := elapsed / time.Duration(done)
	eta := avg * time.Duration(total-done)

	logger.Info("ingest progress",
		"processed", done,
		"total", total,
		"percent", fmt.Sprintf("%.1f", float64(done)/float64(total)*100),
		"skipped", stats.Skipped,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"elapsed", elapsed.Round(time.Second).String(),
		"eta", eta.Round(time.Second).String(),
	)
}
