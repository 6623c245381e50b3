package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reposift/reposift/internal/domain"
)

type MockDigester struct {
	mock.Mock
}

func (m *MockDigester) Digest(ctx context.Context, sourceURL string, maxFileSize int) (string, error) {
	args := m.Called(ctx, sourceURL, maxFileSize)
	return args.String(0), args.Error(1)
}

type MockCondenser struct {
	mock.Mock
}

func (m *MockCondenser) Condense(ctx context.Context, rec domain.RepositoryRecord, digest string) (string, error) {
	args := m.Called(ctx, rec, digest)
	return args.String(0), args.Error(1)
}

func workerRecord() domain.RepositoryRecord {
	return domain.RepositoryRecord{
		Owner:     "alphagov",
		Name:      "govuk-frontend",
		SourceURL: "https://github.com/alphagov/govuk-frontend",
		PushedAt:  time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWorkerSummarize(t *testing.T) {
	rec := workerRecord()

	digester := new(MockDigester)
	digester.On("Digest", mock.Anything, rec.SourceURL, MaxSummaryBytes).
		Return("digest of the repository", nil)

	w := NewWorker(digester, nil, 0, nil)
	got, err := w.Summarize(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "digest of the repository", got)
	digester.AssertExpectations(t)
}

func TestWorkerPassesCapToDigester(t *testing.T) {
	rec := workerRecord()

	digester := new(MockDigester)
	digester.On("Digest", mock.Anything, rec.SourceURL, 524288).Return("ok", nil)

	w := NewWorker(digester, nil, 0, nil)
	_, err := w.Summarize(context.Background(), rec)
	require.NoError(t, err)
	digester.AssertExpectations(t)
}

func TestWorkerDigestFailure(t *testing.T) {
	rec := workerRecord()

	digester := new(MockDigester)
	digester.On("Digest", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("clone failed"))

	w := NewWorker(digester, nil, 0, nil)
	_, err := w.Summarize(context.Background(), rec)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeProcessingFailed, domainErr.Code)
	assert.Contains(t, err.Error(), "alphagov/govuk-frontend")
}

func TestWorkerHonorsTimeout(t *testing.T) {
	rec := workerRecord()

	slow := &blockingDigester{}
	w := NewWorker(slow, nil, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := w.Summarize(context.Background(), rec)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeProcessingFailed, domainErr.Code)
}

type blockingDigester struct{}

func (d *blockingDigester) Digest(ctx context.Context, sourceURL string, maxFileSize int) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestWorkerCondensesWhenConfigured(t *testing.T) {
	rec := workerRecord()

	digester := new(MockDigester)
	digester.On("Digest", mock.Anything, mock.Anything, mock.Anything).Return("raw digest", nil)

	condenser := new(MockCondenser)
	condenser.On("Condense", mock.Anything, rec, "raw digest").Return("condensed summary", nil)

	w := NewWorker(digester, condenser, 0, nil)
	got, err := w.Summarize(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "condensed summary", got)
	condenser.AssertExpectations(t)
}

func TestWorkerKeepsDigestWhenCondenseFails(t *testing.T) {
	rec := workerRecord()

	digester := new(MockDigester)
	digester.On("Digest", mock.Anything, mock.Anything, mock.Anything).Return("raw digest", nil)

	condenser := new(MockCondenser)
	condenser.On("Condense", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("rate limited"))

	w := NewWorker(digester, condenser, 0, nil)
	got, err := w.Summarize(context.Background(), rec)
	require.NoError(t, err, "condense failure must not fail the repository")
	assert.Equal(t, "raw digest", got)
}

func TestWorkerTruncatesOversizedOutput(t *testing.T) {
	rec := workerRecord()

	digester := new(MockDigester)
	digester.On("Digest", mock.Anything, mock.Anything, mock.Anything).
		Return(strings.Repeat("x", MaxSummaryBytes+4096), nil)

	w := NewWorker(digester, nil, 0, nil)
	got, err := w.Summarize(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, TruncationNotice))
	assert.Equal(t, MaxSummaryBytes+len(TruncationNotice), len(got))
}
