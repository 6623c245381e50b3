package domain

import (
	"fmt"
	"time"
)

// FingerprintStatusComplete is the only status written today; the column
// exists so partially-processed states can be represented later
const FingerprintStatusComplete = "complete"

// Fingerprint records that a repository was summarized at a given push
// timestamp. A repository whose feed PushedAt matches its stored
// fingerprint is skipped on subsequent runs.
type Fingerprint struct {
	Org         string
	Repo        string
	PushedAt    time.Time
	ProcessedAt time.Time
	Status      string
}

// NewFingerprint creates a completed Fingerprint for a processed repository
func NewFingerprint(org, repo string, pushedAt, processedAt time.Time) Fingerprint {
	return Fingerprint{
		Org:         org,
		Repo:        repo,
		PushedAt:    pushedAt,
		ProcessedAt: processedAt,
		Status:      FingerprintStatusComplete,
	}
}

// Matches reports whether the stored fingerprint covers the given push
// timestamp. Equality is exact; any drift means the repository changed.
func (f Fingerprint) Matches(pushedAt time.Time) bool {
	return f.PushedAt.Equal(pushedAt)
}

// ValidateFingerprint validates a Fingerprint
func ValidateFingerprint(f Fingerprint) error {
	if f.Org == "" {
		return fmt.Errorf("fingerprint Org is required")
	}

	if f.Repo == "" {
		return fmt.Errorf("fingerprint Repo is required")
	}

	if f.PushedAt.IsZero() {
		return fmt.Errorf("fingerprint PushedAt is required")
	}

	return nil
}
