package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIChat is the hosted chat-completion backend.
type OpenAIChat struct {
	client *openai.Client
	model  string
}

// NewOpenAIChat wraps an existing OpenAI client (shared with the embedder).
func NewOpenAIChat(client *openai.Client, model string) *OpenAIChat {
	return &OpenAIChat{client: client, model: model}
}

func (o *OpenAIChat) Name() string { return "openai" }

func (o *OpenAIChat) Complete(ctx context.Context, prompt string, history []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(o.model),
	})
	if err != nil {
		return "", classifyOpenAI(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion failed: %w", err)
	}
	switch {
	case apiErr.StatusCode == 429:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case apiErr.StatusCode >= 500:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return fmt.Errorf("chat completion failed: %w", err)
	}
}
