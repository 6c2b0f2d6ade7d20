package genai

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ProviderConfig holds credentials for one provider.
type ProviderConfig struct {
	APIKey   string
	Model    string
	Endpoint string // base URL override, mainly for tests
	Auth     string // HTTP provider only
}

// Config describes the provider chain.
type Config struct {
	// Order lists provider names, each tried once.
	Order     []string
	Timeout   time.Duration
	MaxTokens int

	Gemini   ProviderConfig
	Groq     ProviderConfig
	Cerebras ProviderConfig
	HTTP     ProviderConfig
}

// CreateGateway builds the providers named in cfg.Order. Providers that are
// named but lack credentials are skipped with a warning. An empty chain is
// valid and yields mock answers.
func CreateGateway(ctx context.Context, cfg Config, recorder Recorder) (*Gateway, error) {
	answerers := make([]Answerer, 0, len(cfg.Order))

	for _, name := range cfg.Order {
		a, err := createAnswerer(ctx, Provider(name), cfg)
		if err != nil {
			return nil, fmt.Errorf("create %s answerer: %w", name, err)
		}
		if a == nil {
			slog.WarnContext(ctx, "answer provider listed but not configured", "provider", name)
			continue
		}
		answerers = append(answerers, a)
	}

	g := NewGateway(cfg.Timeout, recorder, answerers...)
	if g.Enabled() {
		slog.InfoContext(ctx, "answer gateway configured",
			"primary", g.answerers[0].Provider(),
			"chainSize", len(g.answerers))
	} else {
		slog.InfoContext(ctx, "no answer provider configured, using mock answers")
	}
	return g, nil
}

// createAnswerer returns a nil Answerer (not a typed nil) when disabled.
func createAnswerer(ctx context.Context, p Provider, cfg Config) (Answerer, error) {
	switch p {
	case ProviderGemini:
		a, err := newGeminiAnswerer(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Endpoint, cfg.MaxTokens)
		if a == nil || err != nil {
			return nil, err
		}
		return a, nil
	case ProviderGroq, ProviderCerebras:
		pc := cfg.Groq
		if p == ProviderCerebras {
			pc = cfg.Cerebras
		}
		a, err := newOpenAIAnswerer(p, pc.APIKey, pc.Model, pc.Endpoint, cfg.MaxTokens)
		if a == nil || err != nil {
			return nil, err
		}
		return a, nil
	case ProviderHTTP:
		a, err := newHTTPAnswerer(cfg.HTTP.Endpoint, cfg.HTTP.APIKey, cfg.HTTP.Auth, cfg.MaxTokens, cfg.Timeout)
		if a == nil || err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p)
	}
}
