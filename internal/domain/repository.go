package domain

import (
	"fmt"
	"strings"
	"time"
)

// RepositoryRecord represents one repository entry from the public feed
type RepositoryRecord struct {
	Owner     string
	Name      string
	SourceURL string
	PushedAt  time.Time
	Language  string
	Topics    []string
}

// FullName returns the owner/name form used in logs and artifact keys
func (r RepositoryRecord) FullName() string {
	return r.Owner + "/" + r.Name
}

// NewRepositoryRecord creates a RepositoryRecord from a feed full_name
// ("owner/name") plus its page URL and last-push timestamp
func NewRepositoryRecord(fullName, sourceURL string, pushedAt time.Time) (RepositoryRecord, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return RepositoryRecord{}, fmt.Errorf("repository full name %q is not owner/name", fullName)
	}
	return RepositoryRecord{
		Owner:     owner,
		Name:      name,
		SourceURL: sourceURL,
		PushedAt:  pushedAt,
	}, nil
}

// ValidateRepositoryRecord validates a RepositoryRecord
func ValidateRepositoryRecord(r RepositoryRecord) error {
	if r.Owner == "" {
		return fmt.Errorf("repository Owner is required")
	}

	if r.Name == "" {
		return fmt.Errorf("repository Name is required")
	}

	if r.SourceURL == "" {
		return fmt.Errorf("repository SourceURL is required")
	}

	if r.PushedAt.IsZero() {
		return fmt.Errorf("repository PushedAt is required")
	}

	return nil
}
