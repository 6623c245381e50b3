package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStoragePinger struct {
	mock.Mock
}

func (m *MockStoragePinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthHandler_AllOperational(t *testing.T) {
	storage := new(MockStoragePinger)
	storage.On("Ping", mock.Anything).Return(nil)

	handler := NewHealthHandler(storage, true)
	w := httptest.NewRecorder()

	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, StatusOperational, resp.Services["storage"])
	assert.Equal(t, StatusOperational, resp.Services["search"])
}

func TestHealthHandler_StorageUnavailable(t *testing.T) {
	storage := new(MockStoragePinger)
	storage.On("Ping", mock.Anything).Return(assert.AnError)

	handler := NewHealthHandler(storage, true)
	w := httptest.NewRecorder()

	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, StatusUnavailable, resp.Services["storage"])
}

func TestHealthHandler_UnconfiguredDoesNotDegrade(t *testing.T) {
	handler := NewHealthHandler(nil, false)
	w := httptest.NewRecorder()

	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, StatusUnconfigured, resp.Services["storage"])
	assert.Equal(t, StatusUnconfigured, resp.Services["search"])
}

func TestHealthHandler_SearchUnconfigured(t *testing.T) {
	storage := new(MockStoragePinger)
	storage.On("Ping", mock.Anything).Return(nil)

	handler := NewHealthHandler(storage, false)
	w := httptest.NewRecorder()

	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, StatusUnconfigured, resp.Services["search"])
}
