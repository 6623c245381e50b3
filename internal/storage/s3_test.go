package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMetadata(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		meta, err := decodeMetadata(map[string]string{
			"pushedat":    "2026-01-15T10:30:00Z",
			"url":         "https://github.com/alphagov/govuk-frontend",
			"processedat": "2026-02-01T08:00:00Z",
		})
		require.NoError(t, err)
		assert.True(t, meta.PushedAt.Equal(time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)))
		assert.True(t, meta.ProcessedAt.Equal(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)))
		assert.Equal(t, "https://github.com/alphagov/govuk-frontend", meta.SourceURL)
	})

	t.Run("MissingKeysTolerated", func(t *testing.T) {
		meta, err := decodeMetadata(map[string]string{})
		require.NoError(t, err)
		assert.True(t, meta.PushedAt.IsZero())
		assert.Empty(t, meta.SourceURL)
	})

	t.Run("MalformedPushedAt", func(t *testing.T) {
		_, err := decodeMetadata(map[string]string{"pushedat": "yesterday"})
		assert.Error(t, err)
	})

	t.Run("MalformedProcessedAt", func(t *testing.T) {
		_, err := decodeMetadata(map[string]string{"processedat": "not-a-time"})
		assert.Error(t, err)
	})
}

func TestArtifactStoreKey(t *testing.T) {
	store := &ArtifactStore{prefix: "summaries"}
	assert.Equal(t, "summaries/alphagov/govuk-frontend/summary.txt", store.Key("alphagov", "govuk-frontend"))
	assert.Equal(t, "summaries/an%20org/repo/summary.txt", store.Key("an org", "repo"))
}
