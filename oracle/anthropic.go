package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/wanqianwin-jpg/aimp/retry"
)

const (
	defaultAnthropicEndpoint  = "https://api.anthropic.com/v1/messages"
	defaultAnthropicVersion   = "2023-06-01"
	defaultAnthropicModel     = "claude-3-7-sonnet-20250219"
	defaultAnthropicMaxTokens = 1024
)

// anthropicProvider is a raw-HTTP Anthropic Messages API client. No official
// Anthropic Go SDK exists in the reference corpus, so this mirrors the
// teacher's own hand-rolled HTTP client exactly rather than guessing at an
// SDK surface.
type anthropicProvider struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewAnthropic constructs an Oracle backed by the Anthropic Messages API.
func NewAnthropic(cfg Config) Oracle {
	apiKeyEnv := cfg.APIKeyEnv
	if apiKeyEnv == "" {
		apiKeyEnv = "ANTHROPIC_API_KEY"
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultAnthropicEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &base{completer: &anthropicProvider{
		apiKey:   os.Getenv(apiKeyEnv),
		endpoint: endpoint,
		model:    model,
		client:   http.DefaultClient,
	}}
}

func (p *anthropicProvider) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     p.model,
		MaxTokens: defaultAnthropicMaxTokens,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userPrompt}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	var result anthropicResponse
	err = retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonBody))
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("x-api-key", p.apiKey)
		req.Header.Set("anthropic-version", defaultAnthropicVersion)
		req.Header.Set("content-type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("error making request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return newAPIError(resp.StatusCode, string(body))
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	}, retry.WithMaxRetries(3))
	if err != nil {
		return "", err
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty response from anthropic api")
	}
	return result.Content[0].Text, nil
}
