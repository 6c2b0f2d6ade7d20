package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiAnswerer answers through the Gemini SDK.
type geminiAnswerer struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// newGeminiAnswerer returns nil when apiKey is empty.
func newGeminiAnswerer(ctx context.Context, apiKey, model, baseURL string, maxTokens int) (*geminiAnswerer, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiAnswerer{client: client, model: model, maxTokens: int32(maxTokens)}, nil //nolint:gosec // bounded by config validation
}

func (a *geminiAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		MaxOutputTokens:   a.maxTokens,
	}

	start := time.Now()
	result, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", WrapError(err, ProviderGemini, apiErr.Code)
		}
		return "", WrapError(err, ProviderGemini, 0)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", WrapError(ErrEmptyAnswer, ProviderGemini, 0)
	}

	if result.UsageMetadata != nil {
		slog.DebugContext(ctx, "answer generated",
			"provider", ProviderGemini,
			"model", a.model,
			"input_tokens", result.UsageMetadata.PromptTokenCount,
			"output_tokens", result.UsageMetadata.CandidatesTokenCount,
			"duration_ms", time.Since(start).Milliseconds())
	}
	return text, nil
}

func (a *geminiAnswerer) Provider() Provider { return ProviderGemini }

func (a *geminiAnswerer) Close() error { return nil }
