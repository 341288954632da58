package oracle

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o"

// openaiProvider uses the official openai-go chat completions client,
// grounded in the SDK the reference corpus already depends on.
type openaiProvider struct {
	client openai.Client
	model  string
}

// NewOpenAI constructs an Oracle backed by the OpenAI (or OpenAI-compatible,
// via base_url) chat completions API.
func NewOpenAI(cfg Config) Oracle {
	apiKeyEnv := cfg.APIKeyEnv
	if apiKeyEnv == "" {
		apiKeyEnv = "OPENAI_API_KEY"
	}
	opts := []option.RequestOption{option.WithAPIKey(os.Getenv(apiKeyEnv))}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &base{completer: &openaiProvider{
		client: openai.NewClient(opts...),
		model:  model,
	}}
}

func (p *openaiProvider) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai api")
	}
	return resp.Choices[0].Message.Content, nil
}
