package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTP auth methods. An empty method picks apikey for Google hosts and
// bearer otherwise.
const (
	AuthBearer = "bearer"
	AuthAPIKey = "apikey"
)

const (
	googleLanguageHost = "generativelanguage.googleapis.com"
	maxResponseBytes   = 1 << 20
)

// httpAnswerer posts the prompt to a configured JSON endpoint.
type httpAnswerer struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	auth      string
	maxTokens int
}

func newHTTPAnswerer(endpoint, apiKey, auth string, maxTokens int, timeout time.Duration) (*httpAnswerer, error) {
	if endpoint == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled without an endpoint
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid answer endpoint: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpAnswerer{
		client:    &http.Client{Timeout: timeout},
		endpoint:  endpoint,
		apiKey:    apiKey,
		auth:      strings.ToLower(auth),
		maxTokens: maxTokens,
	}, nil
}

func (a *httpAnswerer) isGoogle() bool {
	return strings.Contains(a.endpoint, googleLanguageHost)
}

// requestURL returns the endpoint and whether the key went into the query.
func (a *httpAnswerer) requestURL() (string, bool) {
	if a.apiKey == "" {
		return a.endpoint, false
	}
	useQuery := a.auth == AuthAPIKey || (a.auth == "" && a.isGoogle())
	if !useQuery {
		return a.endpoint, false
	}
	sep := "?"
	if strings.Contains(a.endpoint, "?") {
		sep = "&"
	}
	return a.endpoint + sep + "key=" + url.QueryEscape(a.apiKey), true
}

func (a *httpAnswerer) body(prompt string) any {
	if a.isGoogle() {
		return map[string]any{
			"prompt":          map[string]string{"text": prompt},
			"maxOutputTokens": a.maxTokens,
		}
	}
	return map[string]any{
		"prompt":     prompt,
		"max_tokens": a.maxTokens,
	}
}

func (a *httpAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(a.body(prompt))
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	reqURL, keyInQuery := a.requestURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" && !keyInQuery {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err // drop the URL, it may carry the key
		}
		return "", WrapError(err, ProviderHTTP, 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", WrapError(fmt.Errorf("read response: %w", err), ProviderHTTP, 0)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			slog.WarnContext(ctx, "answer endpoint rejected credentials, check key and auth method",
				"auth", a.auth)
		}
		return "", WrapError(fmt.Errorf("answer endpoint returned %s", resp.Status), ProviderHTTP, resp.StatusCode)
	}

	text, matched := ExtractText(body)
	if !matched {
		slog.DebugContext(ctx, "unrecognized answer shape, returning raw body",
			"bytes", len(body))
	}
	if strings.TrimSpace(text) == "" {
		return "", WrapError(ErrEmptyAnswer, ProviderHTTP, 0)
	}
	return text, nil
}

func (a *httpAnswerer) Provider() Provider { return ProviderHTTP }

func (a *httpAnswerer) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
