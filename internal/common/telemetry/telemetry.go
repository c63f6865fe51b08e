// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/codelens/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	uploadsTotal  *expvar.Int
	uploadsFailed *expvar.Int
	filesIngested *expvar.Int
	bytesIngested *expvar.Int

	requestsTotal *expvar.Map

	llmCallsTotal   *expvar.Int
	llmFailures     *expvar.Int
	llmLatencyMS    *expvar.Int
	promptTokens    *expvar.Int
	retrievalsTotal *expvar.Int
	fallbacksTotal  *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		uploadsTotal = expvar.NewInt("codelens_uploads_total")
		uploadsFailed = expvar.NewInt("codelens_uploads_failed")
		filesIngested = expvar.NewInt("codelens_files_ingested_total")
		bytesIngested = expvar.NewInt("codelens_bytes_ingested_total")

		requestsTotal = expvar.NewMap("codelens_assistant_requests_total")

		llmCallsTotal = expvar.NewInt("codelens_llm_calls_total")
		llmFailures = expvar.NewInt("codelens_llm_failures_total")
		llmLatencyMS = expvar.NewInt("codelens_llm_latency_ms")
		promptTokens = expvar.NewInt("codelens_prompt_tokens_total")
		retrievalsTotal = expvar.NewInt("codelens_retrievals_total")
		fallbacksTotal = expvar.NewInt("codelens_retrieval_fallbacks_total")
	})
}

// StartSpan logs the start of a named operation and returns a function that
// logs its duration together with any extra attributes.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", time.Since(sp.start)}, attrs...)...)
	}
}

// SpanDuration reports how long the span stored in ctx has been running.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}

func RecordUpload(files int, bytes int64, err error) {
	ensureInit()
	uploadsTotal.Add(1)
	if err != nil {
		uploadsFailed.Add(1)
		return
	}
	filesIngested.Add(int64(files))
	bytesIngested.Add(bytes)
}

// RecordRequest counts assistant operations by kind (question, refactor).
func RecordRequest(kind string) {
	ensureInit()
	key := strings.ToLower(strings.TrimSpace(kind))
	if key == "" {
		key = "unknown"
	}
	requestsTotal.Add(key, 1)
}

func RecordLLMCall(duration time.Duration, err error) {
	ensureInit()
	llmCallsTotal.Add(1)
	if err != nil {
		llmFailures.Add(1)
	}
	if duration > 0 {
		llmLatencyMS.Add(duration.Milliseconds())
	}
}

func RecordRetrieval(tokens int, fallback bool) {
	ensureInit()
	retrievalsTotal.Add(1)
	if tokens > 0 {
		promptTokens.Add(int64(tokens))
	}
	if fallback {
		fallbacksTotal.Add(1)
	}
}

// Handler exposes the registered counters in expvar's JSON format.
func Handler() http.Handler {
	ensureInit()
	return expvar.Handler()
}
