package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reposift/reposift/internal/api"
	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/telemetry"
)

// ArtifactReader loads stored summaries with their metadata envelopes
type ArtifactReader interface {
	GetArtifact(ctx context.Context, org, repo string) (domain.SummaryArtifact, error)
}

type SummariesHandler struct {
	store ArtifactReader
}

func NewSummariesHandler(store ArtifactReader) *SummariesHandler {
	return &SummariesHandler{store: store}
}

func (h *SummariesHandler) Get(w http.ResponseWriter, r *http.Request) {
	org := pathParam(r, "org")
	repo := pathParam(r, "repo")

	ctx, span := telemetry.StartSpan(r.Context(), "SummariesHandler.Get", telemetry.SpanAttributes{
		Repository: org + "/" + repo,
		Operation:  "summary",
	})
	defer span.End()

	artifact, err := h.store.GetArtifact(ctx, org, repo)
	if err != nil {
		span.SetError(err)
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !artifact.Meta.PushedAt.IsZero() {
		w.Header().Set("X-Pushed-At", artifact.Meta.PushedAt.UTC().Format(time.RFC3339))
	}
	if !artifact.Meta.ProcessedAt.IsZero() {
		w.Header().Set("X-Processed-At", artifact.Meta.ProcessedAt.UTC().Format(time.RFC3339))
	}
	if artifact.Meta.SourceURL != "" {
		w.Header().Set("X-Source-Url", artifact.Meta.SourceURL)
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(artifact.Content))
}

// pathParam returns a URL parameter percent-decoded. chi hands back the
// raw segment when the request path carried encodings.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
