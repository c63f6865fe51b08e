// File path: internal/common/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCountersExposedThroughHandler(t *testing.T) {
	RecordUpload(3, 120, nil)
	RecordUpload(0, 0, errors.New("boom"))
	RecordRequest("Question")
	RecordRequest("")
	RecordLLMCall(5*time.Millisecond, nil)
	RecordRetrieval(42, true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var vars map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &vars); err != nil {
		t.Fatalf("decode vars: %v", err)
	}
	for _, name := range []string{
		"codelens_uploads_total",
		"codelens_uploads_failed",
		"codelens_assistant_requests_total",
		"codelens_llm_calls_total",
		"codelens_retrieval_fallbacks_total",
	} {
		if _, ok := vars[name]; !ok {
			t.Fatalf("expected %s in expvar output", name)
		}
	}
	var requests map[string]int64
	if err := json.Unmarshal(vars["codelens_assistant_requests_total"], &requests); err != nil {
		t.Fatalf("decode requests: %v", err)
	}
	if requests["question"] < 1 || requests["unknown"] < 1 {
		t.Fatalf("unexpected request counters: %v", requests)
	}
}

func TestSpanDuration(t *testing.T) {
	if d := SpanDuration(context.Background()); d != 0 {
		t.Fatalf("expected zero duration without span, got %v", d)
	}
	ctx, end := StartSpan(context.Background(), "test")
	defer end("k", "v")
	time.Sleep(time.Millisecond)
	if d := SpanDuration(ctx); d <= 0 {
		t.Fatalf("expected positive span duration, got %v", d)
	}
}
