// Package summarize turns repositories into bounded summary text: an
// external digest pass, an optional LLM condense pass, and a hard byte cap.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reposift/reposift/internal/domain"
)

// DefaultTimeout bounds one repository's summarization end to end
const DefaultTimeout = 5 * time.Minute

// Worker produces capped summary text for repositories. A failure is
// always scoped to the repository being processed; callers decide whether
// to continue the batch.
type Worker struct {
	digester  Digester
	condenser Condenser // nil skips the condense pass
	timeout   time.Duration
	logger    *slog.Logger
}

// NewWorker creates a Worker. A zero timeout selects DefaultTimeout.
func NewWorker(digester Digester, condenser Condenser, timeout time.Duration, logger *slog.Logger) *Worker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		digester:  digester,
		condenser: condenser,
		timeout:   timeout,
		logger:    logger,
	}
}

// Summarize digests rec under the per-repository deadline, optionally
// condenses the digest, and enforces the output cap. Errors carry the
// repository name and the PROCESSING_FAILED code.
func (w *Worker) Summarize(ctx context.Context, rec domain.RepositoryRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()

	summary, err := w.digester.Digest(ctx, rec.SourceURL, MaxSummaryBytes)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeProcessingFailed,
			fmt.Sprintf("summarizing %s", rec.FullName()), err)
	}

	if w.condenser != nil {
		condensed, err := w.condenser.Condense(ctx, rec, summary)
		if err != nil {
			w.logger.Warn("condense pass failed, keeping raw digest",
				"repository", rec.FullName(),
				"error", err.Error(),
			)
		} else {
			summary = condensed
		}
	}

	capped, truncated := Truncate(summary, MaxSummaryBytes)
	if truncated {
		w.logger.Warn("summary truncated at size cap",
			"repository", rec.FullName(),
			"original_bytes", len(summary),
			"truncated_bytes", len(capped),
		)
	}

	w.logger.Info("summarized repository",
		"repository", rec.FullName(),
		"bytes", len(capped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return capped, nil
}
