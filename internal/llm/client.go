// Package llm provides the language-model service client used by the
// tier-3 evaluator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pagequality/gannet/internal/domain"
)

const (
	defaultEndpoint  = "https://api.anthropic.com/v1/messages"
	defaultModelID   = "claude-3-5-haiku-latest"
	defaultMaxTokens = 2048
	apiVersion       = "2023-06-01"
)

// AnthropicClient implements domain.ModelClient against the Anthropic
// Messages API. The client performs a single blocking round trip per call;
// timeout policy belongs to the injected http.Client and the caller's
// context.
type AnthropicClient struct {
	cfg        domain.ModelConfig
	apiKey     string
	httpClient *http.Client
}

// NewAnthropicClient creates a model client. The credential is resolved
// from cfg.APIKeyEnv, falling back to ANTHROPIC_API_KEY; an empty result
// leaves the client unconfigured rather than erroring, so tier 3 degrades
// to skipped.
func NewAnthropicClient(cfg domain.ModelConfig, httpClient *http.Client) *AnthropicClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &AnthropicClient{
		cfg:        cfg,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Configured reports whether a credential is present.
func (c *AnthropicClient) Configured() bool {
	return c.apiKey != ""
}

// Complete sends a prompt and returns the generated text with the
// provider's reported token counts.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (*domain.ModelResponse, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("llm: no credential configured")
	}

	payload := messagesRequest{
		Model:     valueOrDefault(c.cfg.ModelID, defaultModelID),
		MaxTokens: intOrDefault(c.cfg.MaxTokens, defaultMaxTokens),
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := valueOrDefault(c.cfg.Endpoint, defaultEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("llm: %s", resp.Status)
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}

	return &domain.ModelResponse{
		Text:         decoded.firstText(),
		InputTokens:  decoded.Usage.InputTokens,
		OutputTokens: decoded.Usage.OutputTokens,
	}, nil
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (m messagesResponse) firstText() string {
	if len(m.Content) == 0 {
		return ""
	}
	return m.Content[0].Text
}

func valueOrDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func intOrDefault(value, def int) int {
	if value == 0 {
		return def
	}
	return value
}
