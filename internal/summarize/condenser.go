package summarize

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/reposift/reposift/internal/domain"
)

// DefaultCondenserModel is the chat model used to condense raw digests
const DefaultCondenserModel = openai.GPT4oMini

const condenserSystemPrompt = "You condense raw source-code repository digests into a concise plain-text " +
	"summary covering the repository's purpose, main components, technologies and notable conventions. " +
	"Respond with the summary only."

// ErrEmptyCompletion is returned when the chat API yields no content
var ErrEmptyCompletion = errors.New("completion contained no content")

// Condenser rewrites a raw digest into a compact summary
type Condenser interface {
	Condense(ctx context.Context, rec domain.RepositoryRecord, digest string) (string, error)
}

// ChatAPI defines the completion call the condenser depends on
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAICondenser condenses digests with an OpenAI chat model
type OpenAICondenser struct {
	api   ChatAPI
	model string
}

// NewOpenAICondenser creates a condenser from an API key. An empty model
// selects DefaultCondenserModel.
func NewOpenAICondenser(apiKey, model string) *OpenAICondenser {
	if model == "" {
		model = DefaultCondenserModel
	}
	return &OpenAICondenser{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// Condense sends the digest through the chat model. Input beyond the
// summary byte cap is cut before prompting.
func (c *OpenAICondenser) Condense(ctx context.Context, rec domain.RepositoryRecord, digest string) (string, error) {
	clamped, _ := Truncate(digest, MaxSummaryBytes)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: condenserSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Repository: %s\n\n%s", rec.FullName(), clamped)},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}
