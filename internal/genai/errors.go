package genai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// ErrEmptyAnswer is returned by an Answerer that got a response without text.
var ErrEmptyAnswer = errors.New("empty answer")

// LLMError wraps an error with the provider and HTTP status when known.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider and status code information.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{
		Err:        err,
		StatusCode: statusCode,
		Provider:   provider,
	}
}

// Diagnose maps a provider error to a metric reason and the short
// diagnostic embedded in the fallback answer. HTTP failures read as
// "<code> <status text>", others as a one-word class.
func Diagnose(err error) (reason, diagnostic string) {
	if err == nil {
		return "", ""
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return "http_status", strings.TrimSpace(fmt.Sprintf("%d %s", llmErr.StatusCode, http.StatusText(llmErr.StatusCode)))
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrEmptyAnswer):
		return "empty", "empty response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled", "canceled"
	case errors.As(err, &dnsErr):
		return "dns", "dns lookup failed"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout", "timeout"
	case errors.As(err, &netErr):
		return "unreachable", "unreachable"
	default:
		return "error", "unreachable"
	}
}
