package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Digester produces a raw textual digest of a repository. maxFileSize is
// forwarded to the capability; it is a hint, not a guarantee, so callers
// must still cap the output.
type Digester interface {
	Digest(ctx context.Context, sourceURL string, maxFileSize int) (string, error)
}

type digestRequest struct {
	URL         string `json:"url"`
	MaxFileSize int    `json:"max_file_size"`
}

type digestResponse struct {
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

// HTTPDigester calls an external digest service over HTTP. Deadlines come
// from the caller's context; the worker wraps every call in the per-repo
// timeout.
type HTTPDigester struct {
	serviceURL string
	client     *http.Client
}

// NewHTTPDigester creates a digester against the given service URL
func NewHTTPDigester(serviceURL string) *HTTPDigester {
	return &HTTPDigester{
		serviceURL: serviceURL,
		client:     &http.Client{},
	}
}

// Digest posts the repository URL and file-size cap to the digest service
// and returns its summary text
func (d *HTTPDigester) Digest(ctx context.Context, sourceURL string, maxFileSize int) (string, error) {
	body, err := json.Marshal(digestRequest{URL: sourceURL, MaxFileSize: maxFileSize})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.serviceURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("digest service returned status %d: %s", resp.StatusCode, snippet)
	}

	var decoded digestResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding digest response: %w", err)
	}

	if decoded.Error != "" {
		return "", fmt.Errorf("digest service error: %s", decoded.Error)
	}

	if decoded.Summary == "" {
		return "", fmt.Errorf("digest service returned an empty summary")
	}

	return decoded.Summary, nil
}
