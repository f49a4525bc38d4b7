package ai

import (
	"context"
	"github.com/myrjola/caseledger/internal/errors"
	"github.com/sashabaranov/go-openai"
)

const maxTokens = 4096

// OpenAIProvider speaks to the OpenAI chat completion API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	fastModel string
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     openai.GPT4o,
		fastModel: openai.GPT4oMini,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	model := p.model
	if req.Fast {
		model = p.fastModel
	}

	completionReq := openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		completionReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	completion, err := p.client.CreateChatCompletion(ctx, completionReq)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}
