package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.WebhookRequestsTotal == nil || m.TransitionsTotal == nil || m.GatewayRequestsTotal == nil {
		t.Fatal("metric vectors not initialized")
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"travel_build_info", "go_goroutines", "process_start_time_seconds"} {
		if !names[want] {
			t.Errorf("expected %s to be registered", want)
		}
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Each registry gets its own collectors; creating two must not panic.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestRecordWebhook(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordWebhook("text", "success", 0.2)
	m.RecordWebhook("text", "success", 0.3)
	m.RecordWebhook("location", "error", 1)

	if got := testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("text", "success")); got != 2 {
		t.Errorf("text/success = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.WebhookDurationSeconds); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestRecordTransition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordTransition("NONE", "AWAITING_PLACE_NAME", "menu")
	m.RecordTransition("AWAITING_PLACE_NAME", "AWAITING_PLACE_NAME", "text")

	if got := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("NONE", "AWAITING_PLACE_NAME", "menu")); got != 1 {
		t.Errorf("transition count = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.TransitionsTotal); got != 2 {
		t.Errorf("transition series = %d, want 2", got)
	}
}

func TestRecordGatewayAndFallback(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordGateway(GatewayTextSearch, "success", 0.4)
	m.RecordGateway(GatewayAnswer, "error", 15)
	m.RecordAnswerFallback("timeout")
	m.RecordSingleflightDedup(GatewayTextSearch)
	m.RecordStorageError("save_state")
	m.RecordJob("backup", 3)
	m.SetStoredRows("users", 42)

	if got := testutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues(GatewayAnswer, "error")); got != 1 {
		t.Errorf("answer/error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AnswerFallbacksTotal.WithLabelValues("timeout")); got != 1 {
		t.Errorf("fallback timeout = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StoredRows.WithLabelValues("users")); got != 42 {
		t.Errorf("stored rows = %v, want 42", got)
	}
}
