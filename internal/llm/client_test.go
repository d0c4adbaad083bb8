package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pagequality/gannet/internal/domain"
)

func testConfig(endpoint string) domain.ModelConfig {
	return domain.ModelConfig{
		Provider:  "anthropic",
		ModelID:   "test-model",
		Endpoint:  endpoint,
		MaxTokens: 512,
		APIKeyEnv: "GANNET_TEST_MODEL_KEY",
	}
}

func TestConfigured(t *testing.T) {
	t.Run("WithCredential", func(t *testing.T) {
		t.Setenv("GANNET_TEST_MODEL_KEY", "sk-test")
		c := NewAnthropicClient(testConfig(""), nil)
		if !c.Configured() {
			t.Error("expected client to be configured")
		}
	})

	t.Run("WithoutCredential", func(t *testing.T) {
		t.Setenv("GANNET_TEST_MODEL_KEY", "")
		t.Setenv("ANTHROPIC_API_KEY", "")
		c := NewAnthropicClient(testConfig(""), nil)
		if c.Configured() {
			t.Error("expected client to be unconfigured")
		}
		if _, err := c.Complete(context.Background(), "prompt"); err == nil {
			t.Error("Complete should fail without a credential")
		}
	})
}

func TestComplete(t *testing.T) {
	t.Setenv("GANNET_TEST_MODEL_KEY", "sk-test")

	var gotReq struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var gotHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&gotReq)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [{"text": "model says hello"}],
			"usage": {"input_tokens": 120, "output_tokens": 30}
		}`))
	}))
	defer server.Close()

	c := NewAnthropicClient(testConfig(server.URL), server.Client())

	resp, err := c.Complete(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Text != "model says hello" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.InputTokens != 120 || resp.OutputTokens != 30 {
		t.Errorf("tokens = %d/%d, want 120/30", resp.InputTokens, resp.OutputTokens)
	}

	if gotReq.Model != "test-model" || gotReq.MaxTokens != 512 {
		t.Errorf("request model/max_tokens = %q/%d", gotReq.Model, gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "say hello" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotHeaders.Get("x-api-key") != "sk-test" {
		t.Error("missing x-api-key header")
	}
	if gotHeaders.Get("anthropic-version") == "" {
		t.Error("missing anthropic-version header")
	}
}

func TestCompleteServerError(t *testing.T) {
	t.Setenv("GANNET_TEST_MODEL_KEY", "sk-test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewAnthropicClient(testConfig(server.URL), server.Client())
	if _, err := c.Complete(context.Background(), "prompt"); err == nil {
		t.Error("expected error on 429 response")
	}
}

func TestCompleteMalformedResponse(t *testing.T) {
	t.Setenv("GANNET_TEST_MODEL_KEY", "sk-test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := NewAnthropicClient(testConfig(server.URL), server.Client())
	if _, err := c.Complete(context.Background(), "prompt"); err == nil {
		t.Error("expected decode error")
	}
}
