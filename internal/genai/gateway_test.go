package genai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockAnswerer struct {
	answerFunc  func(ctx context.Context, prompt string) (string, error)
	provider    Provider
	calls       int
	closeCalled bool
}

func (m *mockAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	m.calls++
	if m.answerFunc != nil {
		return m.answerFunc(ctx, prompt)
	}
	return "", errors.New("not implemented")
}

func (m *mockAnswerer) Provider() Provider { return m.provider }

func (m *mockAnswerer) Close() error {
	m.closeCalled = true
	return nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	statuses  []string
	fallbacks []string
}

func (r *fakeRecorder) RecordGateway(_ string, status string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *fakeRecorder) RecordAnswerFallback(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, reason)
}

func answering(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, nil }
}

func failing(err error) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return "", err }
}

func TestGateway_NoProviders(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{}
	g := NewGateway(time.Second, rec)

	got := g.Generate(context.Background(), "best ramen?")
	if got != "(Mock) ตอบกลับจาก Gemini สำหรับ: best ramen?" {
		t.Errorf("Generate() = %q", got)
	}
	if g.Enabled() {
		t.Error("gateway without answerers should not be enabled")
	}
	if len(rec.fallbacks) != 1 || rec.fallbacks[0] != "unconfigured" {
		t.Errorf("fallbacks = %v", rec.fallbacks)
	}
}

func TestGateway_PrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &mockAnswerer{provider: ProviderGemini, answerFunc: answering("Visit the temple at dawn.")}
	secondary := &mockAnswerer{provider: ProviderGroq, answerFunc: answering("unused")}
	rec := &fakeRecorder{}
	g := NewGateway(time.Second, rec, primary, secondary)

	if got := g.Generate(context.Background(), "tips"); got != "Visit the temple at dawn." {
		t.Errorf("Generate() = %q", got)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times", secondary.calls)
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != "success" {
		t.Errorf("statuses = %v", rec.statuses)
	}
}

func TestGateway_FallsThroughInOrder(t *testing.T) {
	t.Parallel()
	primary := &mockAnswerer{provider: ProviderGemini, answerFunc: failing(WrapError(errors.New("quota"), ProviderGemini, 429))}
	empty := &mockAnswerer{provider: ProviderGroq, answerFunc: answering("")}
	last := &mockAnswerer{provider: ProviderHTTP, answerFunc: answering("Try the night market.")}
	rec := &fakeRecorder{}
	g := NewGateway(time.Second, rec, primary, empty, last)

	if got := g.Generate(context.Background(), "food"); got != "Try the night market." {
		t.Errorf("Generate() = %q", got)
	}
	for _, a := range []*mockAnswerer{primary, empty, last} {
		if a.calls != 1 {
			t.Errorf("%s called %d times, want 1", a.provider, a.calls)
		}
	}
	want := []string{"error", "empty", "success"}
	if strings.Join(rec.statuses, ",") != strings.Join(want, ",") {
		t.Errorf("statuses = %v, want %v", rec.statuses, want)
	}
}

func TestGateway_AllFail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		err    error
		want   string
		reason string
	}{
		{"http status", WrapError(errors.New("boom"), ProviderHTTP, 503), "(Mock) Gemini ไม่พร้อมใช้งาน: 503 Service Unavailable", "http_status"},
		{"timeout", context.DeadlineExceeded, "(Mock) Gemini ไม่พร้อมใช้งาน: timeout", "timeout"},
		{"empty", ErrEmptyAnswer, "(Mock) Gemini ไม่พร้อมใช้งาน: empty response", "empty"},
		{"other", errors.New("connection reset"), "(Mock) Gemini ไม่พร้อมใช้งาน: unreachable", "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := &fakeRecorder{}
			g := NewGateway(time.Second, rec, &mockAnswerer{provider: ProviderGemini, answerFunc: failing(tt.err)})
			if got := g.Generate(context.Background(), "q"); got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
			if len(rec.fallbacks) != 1 || rec.fallbacks[0] != tt.reason {
				t.Errorf("fallbacks = %v, want [%s]", rec.fallbacks, tt.reason)
			}
		})
	}
}

func TestGateway_PerAttemptTimeout(t *testing.T) {
	t.Parallel()
	slow := &mockAnswerer{provider: ProviderGemini, answerFunc: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	fast := &mockAnswerer{provider: ProviderGroq, answerFunc: answering("ok")}
	g := NewGateway(20*time.Millisecond, nil, slow, fast)

	if got := g.Generate(context.Background(), "q"); got != "ok" {
		t.Errorf("Generate() = %q, want ok", got)
	}
}

func TestGateway_StopsOnCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	first := &mockAnswerer{provider: ProviderGemini, answerFunc: func(context.Context, string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	second := &mockAnswerer{provider: ProviderGroq, answerFunc: answering("late")}
	g := NewGateway(time.Second, nil, first, second)

	got := g.Generate(ctx, "q")
	if second.calls != 0 {
		t.Error("second provider should not run after cancellation")
	}
	if got != "(Mock) Gemini ไม่พร้อมใช้งาน: canceled" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGateway_Close(t *testing.T) {
	t.Parallel()
	a := &mockAnswerer{provider: ProviderGemini}
	b := &mockAnswerer{provider: ProviderGroq}
	g := NewGateway(0, nil, a, nil, b)

	if got := g.Providers(); len(got) != 2 || got[0] != ProviderGemini || got[1] != ProviderGroq {
		t.Errorf("Providers() = %v", got)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.closeCalled || !b.closeCalled {
		t.Error("Close should close every answerer")
	}

	var nilGateway *Gateway
	if err := nilGateway.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}
