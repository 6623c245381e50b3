package summarize

import (
	"context"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reposift/reposift/internal/domain"
)

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func condenserRecord() domain.RepositoryRecord {
	return domain.RepositoryRecord{
		Owner:     "alphagov",
		Name:      "govuk-frontend",
		SourceURL: "https://github.com/alphagov/govuk-frontend",
		PushedAt:  time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func completionWith(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestCondenserUsesChatModel(t *testing.T) {
	api := new(MockChatAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == DefaultCondenserModel &&
			len(req.Messages) == 2 &&
			strings.Contains(req.Messages[1].Content, "alphagov/govuk-frontend") &&
			strings.Contains(req.Messages[1].Content, "raw digest")
	})).Return(completionWith("condensed"), nil)

	c := &OpenAICondenser{api: api, model: DefaultCondenserModel}
	got, err := c.Condense(context.Background(), condenserRecord(), "raw digest")
	require.NoError(t, err)
	assert.Equal(t, "condensed", got)
	api.AssertExpectations(t)
}

func TestCondenserClampsOversizedInput(t *testing.T) {
	api := new(MockChatAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return len(req.Messages[1].Content) <= MaxSummaryBytes+len(TruncationNotice)+256
	})).Return(completionWith("condensed"), nil)

	c := &OpenAICondenser{api: api, model: DefaultCondenserModel}
	_, err := c.Condense(context.Background(), condenserRecord(), strings.Repeat("x", MaxSummaryBytes*2))
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestCondenserEmptyCompletion(t *testing.T) {
	api := new(MockChatAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, nil)

	c := &OpenAICondenser{api: api, model: DefaultCondenserModel}
	_, err := c.Condense(context.Background(), condenserRecord(), "digest")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNewOpenAICondenserDefaultsModel(t *testing.T) {
	c := NewOpenAICondenser("test-key", "")
	assert.Equal(t, DefaultCondenserModel, c.model)
}
