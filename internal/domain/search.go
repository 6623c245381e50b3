package domain

// Query validation bounds enforced before any upstream call
const (
	MinQueryLength = 3
	MaxQueryLength = 500

	MinSearchLimit     = 1
	MaxSearchLimit     = 20
	DefaultSearchLimit = 10
)

// SearchQuery is a validated natural-language query plus result cap
type SearchQuery struct {
	Query string
	Limit int
}

// ValidateSearchQuery checks the query length and limit bounds. Violations
// are INVALID_QUERY domain errors and must never reach the upstream index.
func ValidateSearchQuery(q SearchQuery) error {
	if len(q.Query) < MinQueryLength {
		return ErrQueryTooShort
	}

	if len(q.Query) > MaxQueryLength {
		return ErrQueryTooLong
	}

	if q.Limit < MinSearchLimit || q.Limit > MaxSearchLimit {
		return ErrLimitOutOfRange
	}

	return nil
}

// RawSearchResult is one hit as returned by the managed search index,
// before enrichment
type RawSearchResult struct {
	Content    string
	Score      float64
	SourcePath string
}

// RepositoryRef names the repository a result points at
type RepositoryRef struct {
	Org      string
	Name     string
	FullName string
}

// ResultLinks are the navigation links derived from a result's repository
type ResultLinks struct {
	Repository  string
	CloudEditor string
	Workspace   string
}

// EnrichedResult is a search hit after link derivation and metadata lookup.
// Repository and Links are always populated when the source path parses;
// Metadata is nil whenever the envelope lookup fails or times out.
type EnrichedResult struct {
	Content    string
	Score      float64
	Repository RepositoryRef
	Links      ResultLinks
	Metadata   *ArtifactMetadata
	SourcePath string
}
