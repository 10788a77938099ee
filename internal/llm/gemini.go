package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini is the alternate hosted backend.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates the Gemini backend from an API key.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, prompt string, history []Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", classifyGemini(err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini call failed: %w", err)
	}
	switch {
	case apiErr.Code == 429:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case apiErr.Code == 401 || apiErr.Code == 403:
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case apiErr.Code >= 500:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return fmt.Errorf("gemini call failed: %w", err)
	}
}
