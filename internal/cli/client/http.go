package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL = "REPOSIFT_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

// APIClient is an HTTP client for the reposift query API
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → global config → default
// If cmd is nil, skips flag checking and goes directly to env → global config
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	var flagURL string
	if cmd != nil {
		if v, err := cmd.Flags().GetString("api-url"); err == nil {
			flagURL = v
		}
	}

	_, baseURL := ResolveAPIURL(flagURL)
	return NewAPIClientWithConfig(baseURL), nil
}

func NewAPIClient() (*APIClient, error) {
	_ = godotenv.Load()
	return NewAPIClientWithCmd(nil)
}

// NewAPIClientWithConfig creates an APIClient against an explicit base URL.
func NewAPIClientWithConfig(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the resolved API base URL.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// APIError represents a decoded error envelope from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type errorEnvelope struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retry_after"`
	} `json:"error"`
}

// Get performs a GET request and returns the raw JSON body.
func (c *APIClient) Get(path string) (json.RawMessage, error) {
	return c.doJSON("GET", path, nil)
}

// Post performs a POST request with JSON body and returns the raw JSON body.
func (c *APIClient) Post(path string, body interface{}) (json.RawMessage, error) {
	return c.doJSON("POST", path, body)
}

// GetText performs a GET request for a text resource, returning the body and
// response headers (summaries carry their metadata envelope in headers).
func (c *APIClient) GetText(path string) (string, http.Header, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", nil, decodeAPIError(resp.StatusCode, respBody)
	}

	return string(respBody), resp.Header, nil
}

func (c *APIClient) doJSON(method, path string, body interface{}) (json.RawMessage, error) {
	status, respBody, err := c.do(method, path, body)
	if err != nil {
		return nil, err
	}

	if status >= 400 {
		return nil, decodeAPIError(status, respBody)
	}

	return json.RawMessage(respBody), nil
}

// do performs a request and returns the status code and raw body. An error
// is only returned for transport failures; HTTP error statuses are left to
// the caller to interpret.
func (c *APIClient) do(method, path string, body interface{}) (int, []byte, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

func decodeAPIError(status int, body []byte) *APIError {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{
		StatusCode: status,
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
		RetryAfter: envelope.Error.RetryAfter,
	}
}
