package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Default models for OpenAI-compatible providers.
var defaultOpenAIModels = map[Provider]string{
	ProviderGroq:     "llama-3.3-70b-versatile",
	ProviderCerebras: "llama-3.3-70b",
}

// openaiAnswerer answers through an OpenAI-compatible chat completion API.
type openaiAnswerer struct {
	client    openai.Client
	model     string
	maxTokens int64
	provider  Provider
}

// newOpenAIAnswerer returns nil when apiKey is empty. endpoint overrides
// the provider's default base URL.
func newOpenAIAnswerer(provider Provider, apiKey, model, endpoint string, maxTokens int) (*openaiAnswerer, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}

	baseURL := endpoint
	if baseURL == "" {
		var ok bool
		if baseURL, ok = ProviderEndpoint[provider]; !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
	}
	if model == "" {
		model = defaultOpenAIModels[provider]
	}
	if model == "" {
		return nil, fmt.Errorf("no default model for provider: %s", provider)
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // each provider is attempted once
	)
	return &openaiAnswerer{client: client, model: model, maxTokens: int64(maxTokens), provider: provider}, nil
}

func (a *openaiAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(a.maxTokens),
	}

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", WrapError(err, a.provider, apiErr.StatusCode)
		}
		return "", WrapError(err, a.provider, 0)
	}
	if len(resp.Choices) == 0 {
		return "", WrapError(ErrEmptyAnswer, a.provider, 0)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", WrapError(ErrEmptyAnswer, a.provider, 0)
	}

	slog.DebugContext(ctx, "answer generated",
		"provider", a.provider,
		"model", a.model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

func (a *openaiAnswerer) Provider() Provider { return a.provider }

func (a *openaiAnswerer) Close() error { return nil }
