package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ArtifactFilename is the fixed final segment of every summary object key
const ArtifactFilename = "summary.txt"

// ArtifactMetadata is the metadata envelope stored alongside each summary
// object. Keys are lowercased by S3-compatible stores on write.
type ArtifactMetadata struct {
	PushedAt    time.Time
	SourceURL   string
	ProcessedAt time.Time
}

// SummaryArtifact represents a summary object ready to be written to, or
// read back from, the content store
type SummaryArtifact struct {
	Key     string
	Content string
	Meta    ArtifactMetadata
}

// ArtifactRef identifies the repository a summary object belongs to
type ArtifactRef struct {
	Org  string
	Repo string
}

// FullName returns the org/repo form
func (r ArtifactRef) FullName() string {
	return r.Org + "/" + r.Repo
}

// ArtifactKey builds the object key for a repository's summary:
// {prefix}/{org}/{repo}/summary.txt with org and repo percent-encoded
func ArtifactKey(prefix, org, repo string) string {
	return fmt.Sprintf("%s/%s/%s/%s", prefix, url.PathEscape(org), url.PathEscape(repo), ArtifactFilename)
}

// ParseArtifactKey extracts the owning repository from an object key of the
// form {prefix}/{org}/{repo}/summary.txt. The prefix may span multiple
// segments. Returns ok=false for any key that does not match the grammar;
// it never panics on malformed input.
func ParseArtifactKey(key string) (ArtifactRef, bool) {
	segments := strings.Split(key, "/")
	if len(segments) < 4 {
		return ArtifactRef{}, false
	}

	if segments[len(segments)-1] != ArtifactFilename {
		return ArtifactRef{}, false
	}

	org, err := url.PathUnescape(segments[len(segments)-3])
	if err != nil || org == "" {
		return ArtifactRef{}, false
	}

	repo, err := url.PathUnescape(segments[len(segments)-2])
	if err != nil || repo == "" {
		return ArtifactRef{}, false
	}

	for _, seg := range segments[:len(segments)-3] {
		if seg == "" {
			return ArtifactRef{}, false
		}
	}

	return ArtifactRef{Org: org, Repo: repo}, true
}

// ValidateArtifact validates a SummaryArtifact before it is written
func ValidateArtifact(a SummaryArtifact) error {
	if a.Key == "" {
		return fmt.Errorf("artifact Key is required")
	}

	if a.Content == "" {
		return fmt.Errorf("artifact Content is required")
	}

	if a.Meta.SourceURL == "" {
		return fmt.Errorf("artifact SourceURL is required")
	}

	if a.Meta.PushedAt.IsZero() {
		return fmt.Errorf("artifact PushedAt is required")
	}

	return nil
}
