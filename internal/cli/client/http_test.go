package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","services":{}}`))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	data, err := api.Get("/health")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"healthy","services":{}}`, string(data))
}

func TestAPIClient_Post_SetsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"results":[],"count":0,"took_ms":1}`))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	data, err := api.Post("/search", SearchRequest{Query: "govuk frontend", Limit: 5})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"count":0`)
}

func TestAPIClient_DecodesErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":"SERVICE_UNAVAILABLE","message":"search is temporarily unavailable","retry_after":30}}`))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	_, err := api.Post("/search", SearchRequest{Query: "anything"})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", apiErr.Code)
	assert.Equal(t, "search is temporarily unavailable", apiErr.Message)
	assert.Equal(t, 30, apiErr.RetryAfter)
	assert.Contains(t, apiErr.Error(), "SERVICE_UNAVAILABLE")
}

func TestAPIClient_NonEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	_, err := api.Get("/health")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestAPIClient_GetText_ReturnsBodyAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/summaries/alphagov/govuk-frontend", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Pushed-At", "2026-01-15T10:30:00Z")
		w.Write([]byte("GOV.UK Frontend contains the code you need..."))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	content, headers, err := api.GetText("/summaries/alphagov/govuk-frontend")
	require.NoError(t, err)
	assert.Equal(t, "GOV.UK Frontend contains the code you need...", content)
	assert.Equal(t, "2026-01-15T10:30:00Z", headers.Get("X-Pushed-At"))
}

func TestAPIClient_GetText_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"no summary stored for alphagov/missing"}}`))
	}))
	defer server.Close()

	api := NewAPIClientWithConfig(server.URL)

	_, _, err := api.GetText("/summaries/alphagov/missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestAPIClient_TrimsTrailingSlash(t *testing.T) {
	api := NewAPIClientWithConfig("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", api.BaseURL())
}

func TestNewAPIClientWithCmd_UsesEnv(t *testing.T) {
	t.Setenv("REPOSIFT_API_URL", "http://env-host:9090")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env-host:9090", api.BaseURL())
}
