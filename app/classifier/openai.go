package classifier

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var _ Transport = (*OpenAITransport)(nil)

// OpenAITransport talks to an OpenAI-compatible chat completion
// endpoint in JSON-object mode.
type OpenAITransport struct {
	client openai.Client
	model  string
}

func NewOpenAITransport(apiKey, model, baseURL string) *OpenAITransport {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAITransport{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (t *OpenAITransport) Complete(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMsg),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}

	return resp.Choices[0].Message.Content, nil
}
