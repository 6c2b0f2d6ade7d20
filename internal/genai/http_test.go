package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type capturedRequest struct {
	auth  string
	key   string
	body  map[string]any
	count int
}

func newAnswerServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.count++
		captured.auth = r.Header.Get("Authorization")
		captured.key = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestNewHTTPAnswerer_Disabled(t *testing.T) {
	t.Parallel()
	a, err := newHTTPAnswerer("", "key", "", 300, time.Second)
	if err != nil || a != nil {
		t.Errorf("newHTTPAnswerer(\"\") = (%v, %v), want (nil, nil)", a, err)
	}
	if _, err := newHTTPAnswerer("not a url", "", "", 300, time.Second); err == nil {
		t.Error("expected error for invalid endpoint")
	}
}

func TestHTTPAnswerer_BearerDefault(t *testing.T) {
	t.Parallel()
	srv, captured := newAnswerServer(t, http.StatusOK, `{"text":"Go to Chiang Mai."}`)
	a, err := newHTTPAnswerer(srv.URL+"/v1/answer", "secret", "", 300, time.Second)
	if err != nil {
		t.Fatalf("newHTTPAnswerer() error = %v", err)
	}

	got, err := a.Answer(context.Background(), "where to go?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got != "Go to Chiang Mai." {
		t.Errorf("Answer() = %q", got)
	}
	if captured.auth != "Bearer secret" || captured.key != "" {
		t.Errorf("auth = %q key = %q, want bearer header only", captured.auth, captured.key)
	}
	if captured.body["prompt"] != "where to go?" {
		t.Errorf("prompt = %v", captured.body["prompt"])
	}
	if captured.body["max_tokens"] != float64(300) {
		t.Errorf("max_tokens = %v", captured.body["max_tokens"])
	}
}

func TestHTTPAnswerer_APIKeyQuery(t *testing.T) {
	t.Parallel()
	srv, captured := newAnswerServer(t, http.StatusOK, `{"candidates":[{"output":"ok"}]}`)
	a, err := newHTTPAnswerer(srv.URL+"/answer?alt=json", "k&1", AuthAPIKey, 100, time.Second)
	if err != nil {
		t.Fatalf("newHTTPAnswerer() error = %v", err)
	}

	if _, err := a.Answer(context.Background(), "q"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if captured.key != "k&1" {
		t.Errorf("key = %q, want k&1", captured.key)
	}
	if captured.auth != "" {
		t.Errorf("Authorization = %q, want empty", captured.auth)
	}
}

func TestHTTPAnswerer_GoogleHostShape(t *testing.T) {
	t.Parallel()
	a := &httpAnswerer{
		endpoint:  "https://generativelanguage.googleapis.com/v1beta2/models/text-bison-001:generateText",
		apiKey:    "abc",
		maxTokens: 300,
	}

	u, inQuery := a.requestURL()
	if !inQuery || !strings.HasSuffix(u, "?key=abc") {
		t.Errorf("requestURL() = (%q, %v)", u, inQuery)
	}
	body, ok := a.body("hi").(map[string]any)
	if !ok {
		t.Fatalf("body() type = %T", a.body("hi"))
	}
	prompt, ok := body["prompt"].(map[string]string)
	if !ok || prompt["text"] != "hi" {
		t.Errorf("prompt = %v", body["prompt"])
	}
	if body["maxOutputTokens"] != 300 {
		t.Errorf("maxOutputTokens = %v", body["maxOutputTokens"])
	}

	a.auth = AuthBearer
	if _, inQuery := a.requestURL(); inQuery {
		t.Error("explicit bearer should not put the key in the query")
	}
}

func TestHTTPAnswerer_ErrorStatus(t *testing.T) {
	t.Parallel()
	for _, status := range []int{http.StatusUnauthorized, http.StatusServiceUnavailable} {
		srv, _ := newAnswerServer(t, status, `{"error":"nope"}`)
		a, err := newHTTPAnswerer(srv.URL, "k", "", 300, time.Second)
		if err != nil {
			t.Fatalf("newHTTPAnswerer() error = %v", err)
		}

		_, err = a.Answer(context.Background(), "q")
		var llmErr *LLMError
		if !errors.As(err, &llmErr) || llmErr.StatusCode != status {
			t.Errorf("status %d: error = %v", status, err)
		}
	}
}

func TestHTTPAnswerer_RawAndEmptyBodies(t *testing.T) {
	t.Parallel()
	srv, _ := newAnswerServer(t, http.StatusOK, `{"answer":{"deep":true}}`)
	a, _ := newHTTPAnswerer(srv.URL, "", "", 300, time.Second)
	got, err := a.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got != `{"answer":{"deep":true}}` {
		t.Errorf("Answer() = %q, want raw JSON", got)
	}

	emptySrv, _ := newAnswerServer(t, http.StatusOK, `{"text":""}`)
	b, _ := newHTTPAnswerer(emptySrv.URL, "", "", 300, time.Second)
	_, err = b.Answer(context.Background(), "q")
	if reason, _ := Diagnose(err); reason != "empty" {
		t.Errorf("empty body reason = %q, err = %v", reason, err)
	}
}

func TestHTTPAnswerer_ErrorHidesKey(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	a, _ := newHTTPAnswerer(endpoint, "topsecret", AuthAPIKey, 300, time.Second)
	_, err := a.Answer(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Errorf("error leaks key: %v", err)
	}
}
