package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepositoryRecord(t *testing.T) {
	pushed := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("Valid", func(t *testing.T) {
		rec, err := NewRepositoryRecord("alphagov/govuk-frontend", "https://github.com/alphagov/govuk-frontend", pushed)
		require.NoError(t, err)
		assert.Equal(t, "alphagov", rec.Owner)
		assert.Equal(t, "govuk-frontend", rec.Name)
		assert.Equal(t, "https://github.com/alphagov/govuk-frontend", rec.SourceURL)
		assert.True(t, rec.PushedAt.Equal(pushed))
		assert.Equal(t, "alphagov/govuk-frontend", rec.FullName())
	})

	t.Run("NameWithSlash", func(t *testing.T) {
		rec, err := NewRepositoryRecord("org/group/repo", "https://example.com", pushed)
		require.NoError(t, err)
		assert.Equal(t, "org", rec.Owner)
		assert.Equal(t, "group/repo", rec.Name)
	})

	tests := []struct {
		name     string
		fullName string
	}{
		{"NoSlash", "justaname"},
		{"EmptyOwner", "/repo"},
		{"EmptyName", "owner/"},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepositoryRecord(tt.fullName, "https://example.com", pushed)
			assert.Error(t, err)
		})
	}
}

func TestValidateRepositoryRecord(t *testing.T) {
	pushed := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	valid := RepositoryRecord{
		Owner:     "alphagov",
		Name:      "govuk-frontend",
		SourceURL: "https://github.com/alphagov/govuk-frontend",
		PushedAt:  pushed,
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, ValidateRepositoryRecord(valid))
	})

	t.Run("MissingOwner", func(t *testing.T) {
		r := valid
		r.Owner = ""
		assert.Error(t, ValidateRepositoryRecord(r))
	})

	t.Run("MissingName", func(t *testing.T) {
		r := valid
		r.Name = ""
		assert.Error(t, ValidateRepositoryRecord(r))
	})

	t.Run("MissingSourceURL", func(t *testing.T) {
		r := valid
		r.SourceURL = ""
		assert.Error(t, ValidateRepositoryRecord(r))
	})

	t.Run("ZeroPushedAt", func(t *testing.T) {
		r := valid
		r.PushedAt = time.Time{}
		assert.Error(t, ValidateRepositoryRecord(r))
	})
}

func TestFingerprintMatches(t *testing.T) {
	pushed := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	fp := NewFingerprint("alphagov", "govuk-frontend", pushed, pushed.Add(time.Hour))

	assert.Equal(t, FingerprintStatusComplete, fp.Status)
	assert.True(t, fp.Matches(pushed))
	assert.True(t, fp.Matches(pushed.In(time.FixedZone("CET", 3600))), "same instant in another zone must match")
	assert.False(t, fp.Matches(pushed.Add(time.Second)))
}

func TestValidateFingerprint(t *testing.T) {
	pushed := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, ValidateFingerprint(NewFingerprint("org", "repo", pushed, pushed)))
	})

	t.Run("MissingOrg", func(t *testing.T) {
		fp := NewFingerprint("", "repo", pushed, pushed)
		assert.Error(t, ValidateFingerprint(fp))
	})

	t.Run("MissingRepo", func(t *testing.T) {
		fp := NewFingerprint("org", "", pushed, pushed)
		assert.Error(t, ValidateFingerprint(fp))
	})

	t.Run("ZeroPushedAt", func(t *testing.T) {
		fp := NewFingerprint("org", "repo", time.Time{}, pushed)
		assert.Error(t, ValidateFingerprint(fp))
	})
}
