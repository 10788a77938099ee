package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama is the local model-server backend, spoken to over its JSON API.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama creates the Ollama backend. A nil httpClient gets a default with
// a generous timeout; local generation is slow on first load.
func NewOllama(baseURL, model string, httpClient *http.Client) *Ollama {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (o *Ollama) Complete(ctx context.Context, prompt string, history []Turn) (string, error) {
	// Ollama's generate endpoint is single-shot; prior turns are folded into
	// the prompt text.
	full := prompt
	if len(history) > 0 {
		var b strings.Builder
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString(prompt)
		full = b.String()
	}

	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  o.model,
		Prompt: full,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("create ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyOllamaStatus(resp.StatusCode, string(body))
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("ollama: %s", genResp.Error)
	}
	return genResp.Response, nil
}

func classifyOllamaStatus(code int, body string) error {
	switch code {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: ollama returned 429", ErrRateLimited)
	case http.StatusServiceUnavailable:
		// Ollama answers 503 while it is loading the requested model.
		return fmt.Errorf("%w: %s", ErrModelLoading, body)
	case http.StatusNotFound:
		return fmt.Errorf("%w: model not found: %s", ErrUnavailable, body)
	default:
		return fmt.Errorf("ollama returned status %d: %s", code, body)
	}
}
