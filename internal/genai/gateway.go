package genai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const gatewayLabel = "answer"

// Gateway tries each Answerer once, in order. Generate never fails.
type Gateway struct {
	answerers []Answerer
	timeout   time.Duration
	metrics   Recorder
}

// NewGateway builds a gateway over answerers. Nil entries are skipped. A
// timeout of 0 leaves the per-attempt deadline to the caller's context.
func NewGateway(timeout time.Duration, recorder Recorder, answerers ...Answerer) *Gateway {
	g := &Gateway{timeout: timeout, metrics: recorder}
	for _, a := range answerers {
		if a != nil {
			g.answerers = append(g.answerers, a)
		}
	}
	return g
}

// Enabled reports whether at least one provider is configured.
func (g *Gateway) Enabled() bool {
	return g != nil && len(g.answerers) > 0
}

// Providers lists the chain in order.
func (g *Gateway) Providers() []Provider {
	out := make([]Provider, 0, len(g.answerers))
	for _, a := range g.answerers {
		out = append(out, a.Provider())
	}
	return out
}

// Generate returns the first successful answer. With no provider it
// returns MockAnswer(prompt); when every provider fails it returns
// FallbackAnswer with the last failure's diagnostic.
func (g *Gateway) Generate(ctx context.Context, prompt string) string {
	if !g.Enabled() {
		g.recordFallback("unconfigured")
		return MockAnswer(prompt)
	}

	var lastErr error
	for _, a := range g.answerers {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		text, err := g.attempt(ctx, a, prompt)
		if err == nil {
			return text
		}
		lastErr = err
		slog.WarnContext(ctx, "answer provider failed",
			"provider", a.Provider(),
			"error", err)
	}

	reason, diagnostic := Diagnose(lastErr)
	g.recordFallback(reason)
	slog.ErrorContext(ctx, "all answer providers failed",
		"providers", len(g.answerers),
		"reason", reason,
		"error", lastErr)
	return FallbackAnswer(diagnostic)
}

func (g *Gateway) attempt(ctx context.Context, a Answerer, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := a.Answer(ctx, prompt)
	if err == nil && text == "" {
		err = ErrEmptyAnswer
	}

	status := "success"
	switch {
	case errors.Is(err, ErrEmptyAnswer):
		status = "empty"
	case err != nil:
		status = "error"
	}
	if g.metrics != nil {
		g.metrics.RecordGateway(gatewayLabel, status, time.Since(start).Seconds())
	}
	return text, err
}

func (g *Gateway) recordFallback(reason string) {
	if g != nil && g.metrics != nil {
		g.metrics.RecordAnswerFallback(reason)
	}
}

// Close releases every answerer.
func (g *Gateway) Close() error {
	if g == nil {
		return nil
	}
	var errs []error
	for _, a := range g.answerers {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}
