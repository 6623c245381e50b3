package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/reposift/reposift/internal/api"
	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/telemetry"
)

// Searcher queries the managed search index
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.RawSearchResult, error)
}

// ResultEnricher expands raw hits with repository links and metadata
type ResultEnricher interface {
	EnrichAll(ctx context.Context, raws []domain.RawSearchResult) []domain.EnrichedResult
}

type SearchHandler struct {
	searcher Searcher
	enricher ResultEnricher
}

func NewSearchHandler(searcher Searcher, enricher ResultEnricher) *SearchHandler {
	return &SearchHandler{searcher: searcher, enricher: enricher}
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type RepositoryResponse struct {
	Org      string `json:"org"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
}

type LinksResponse struct {
	Primary            string `json:"primary"`
	CloudEditor        string `json:"cloudEditor"`
	EphemeralWorkspace string `json:"ephemeralWorkspace"`
}

type MetadataResponse struct {
	LastModifiedAt string `json:"lastModifiedAt,omitempty"`
	SourceURL      string `json:"sourceUrl,omitempty"`
	ProcessedAt    string `json:"processedAt,omitempty"`
}

type ResultResponse struct {
	Content    string             `json:"content"`
	Score      float64            `json:"score"`
	Repository RepositoryResponse `json:"repository"`
	Links      LinksResponse      `json:"links"`
	Metadata   *MetadataResponse  `json:"metadata,omitempty"`
	SourcePath string             `json:"sourcePath"`
}

type SearchResponse struct {
	Results []ResultResponse `json:"results"`
	Count   int              `json:"count"`
	TookMS  int64            `json:"took_ms"`
}

func resultToResponse(r domain.EnrichedResult) ResultResponse {
	out := ResultResponse{
		Content: r.Content,
		Score:   r.Score,
		Repository: RepositoryResponse{
			Org:      r.Repository.Org,
			Name:     r.Repository.Name,
			FullName: r.Repository.FullName,
		},
		Links: LinksResponse{
			Primary:            r.Links.Repository,
			CloudEditor:        r.Links.CloudEditor,
			EphemeralWorkspace: r.Links.Workspace,
		},
		SourcePath: r.SourcePath,
	}
	if r.Metadata != nil {
		out.Metadata = &MetadataResponse{
			LastModifiedAt: r.Metadata.PushedAt.Format(time.RFC3339),
			SourceURL:      r.Metadata.SourceURL,
			ProcessedAt:    r.Metadata.ProcessedAt.Format(time.RFC3339),
		}
	}
	return out
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeInvalidQuery, "invalid request body")
		return
	}

	if req.Limit == 0 {
		req.Limit = domain.DefaultSearchLimit
	}

	ctx, span := telemetry.StartSpan(r.Context(), "SearchHandler.Search", telemetry.SpanAttributes{
		Query:     req.Query,
		Operation: "search",
	})
	defer span.End()

	raws, err := h.searcher.Search(ctx, domain.SearchQuery{Query: req.Query, Limit: req.Limit})
	if err != nil {
		span.SetError(err)
		api.HandleError(w, err)
		return
	}

	enriched := h.enricher.EnrichAll(ctx, raws)

	results := make([]ResultResponse, len(enriched))
	for i, er := range enriched {
		results[i] = resultToResponse(er)
	}

	api.JSON(w, http.StatusOK, SearchResponse{
		Results: results,
		Count:   len(results),
		TookMS:  time.Since(start).Milliseconds(),
	})
}
