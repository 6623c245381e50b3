// Package cache decides whether a repository needs reprocessing by
// comparing its feed push timestamp against the stored fingerprint.
package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/reposift/reposift/internal/domain"
)

// FingerprintStore looks up stored fingerprints. Get returns
// domain.ErrFingerprintNotFound when no row exists.
type FingerprintStore interface {
	Get(ctx context.Context, org, repo string) (domain.Fingerprint, error)
}

// NeedsProcessing is the pure gate rule: process when no fingerprint is
// stored or the stored push timestamp differs from the feed's
func NeedsProcessing(fp *domain.Fingerprint, rec domain.RepositoryRecord) bool {
	if fp == nil {
		return true
	}
	return !fp.Matches(rec.PushedAt)
}

// Gate applies the fingerprint rule against a store. Store failures are
// never fatal: an unreadable cache means everything gets reprocessed, not
// that the run aborts.
type Gate struct {
	store  FingerprintStore
	logger *slog.Logger
}

// NewGate creates a Gate. A nil store disables caching entirely and every
// repository reports as needing processing.
func NewGate(store FingerprintStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, logger: logger}
}

// ShouldProcess reports whether rec must be summarized on this run
func (g *Gate) ShouldProcess(ctx context.Context, rec domain.RepositoryRecord) bool {
	if g.store == nil {
		return true
	}

	fp, err := g.store.Get(ctx, rec.Owner, rec.Name)
	if err != nil {
		if !errors.Is(err, domain.ErrFingerprintNotFound) {
			g.logger.Warn("fingerprint lookup failed, treating as cache miss",
				"repository", rec.FullName(),
				"error", err.Error(),
			)
		}
		return true
	}

	return NeedsProcessing(&fp, rec)
}
