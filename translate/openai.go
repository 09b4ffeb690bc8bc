package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/bosley/polyglot/lang"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI translates with a chat completion model.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OpenAI) Translate(ctx context.Context, text, src, dst string) (string, error) {
	from := "whatever language it is written in"
	if !lang.IsAuto(src) {
		from = lang.Name(src)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the user's message from %s into %s. "+
					"Reply with the translation only, without quotes or commentary.", from, lang.Name(dst)),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrService)
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", fmt.Errorf("%w: empty translation", ErrService)
	}
	return translated, nil
}
