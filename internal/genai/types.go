// Package genai answers free-text travel questions through a chain of LLM
// providers.
//
// Architecture:
//   - Gemini: google.golang.org/genai (official SDK)
//   - Groq/Cerebras: github.com/openai/openai-go/v3 (OpenAI-compatible API)
//   - HTTP: any JSON endpoint, response text found by shape sniffing
//
// Each configured provider is tried once, in order. When every provider
// fails the Gateway returns a fixed fallback text carrying a diagnostic.
package genai

import (
	"context"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini represents Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderGroq represents Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
	// ProviderCerebras represents Cerebras's API (OpenAI-compatible, ultra-fast inference).
	ProviderCerebras Provider = "cerebras"
	// ProviderHTTP is a generic JSON endpoint.
	ProviderHTTP Provider = "http"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible returns true if the provider uses OpenAI-compatible API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Answerer is one provider in the chain.
type Answerer interface {
	// Answer returns generated text, or an error on any failure including
	// an empty answer.
	Answer(ctx context.Context, prompt string) (string, error)
	// Provider returns the provider type for logs and metrics.
	Provider() Provider
	// Close releases any resources held by the answerer.
	Close() error
}

// Recorder receives gateway metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordGateway(gateway, status string, duration float64)
	RecordAnswerFallback(reason string)
}
