package domain

import "context"

// ModelClient is the language-model service consumed by the tier-3
// evaluator. The call blocks for the full round trip; retry and timeout
// policy belong to the transport layer, not the engine.
type ModelClient interface {
	// Complete sends a prompt and returns generated text with the
	// provider's reported token counts.
	Complete(ctx context.Context, prompt string) (*ModelResponse, error)

	// Configured reports whether a usable credential is present. When
	// false, tier 3 reports skipped without calling Complete.
	Configured() bool
}

// ModelResponse is one model completion with token accounting.
type ModelResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// ModelConfig holds model service settings.
type ModelConfig struct {
	// Provider is the model backend: currently "anthropic".
	Provider string `json:"provider"`

	ModelID   string `json:"model_id"`
	Endpoint  string `json:"endpoint"`
	MaxTokens int    `json:"max_tokens"`

	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `json:"api_key_env"`
}
