package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	parseStartedTotal   atomic.Uint64
	parseCompletedTotal atomic.Uint64
	parseFailedTotal    atomic.Uint64

	extractionAttemptsTotal atomic.Uint64
	extractionDegradedTotal atomic.Uint64

	parseJobsReceivedTotal             atomic.Uint64
	parseJobsCompletedTotal            atomic.Uint64
	parseJobsFailedTotal               atomic.Uint64
	parseJobsDeletedUnrecoverableTotal atomic.Uint64

	enrichLogoMissTotal atomic.Uint64
	webhookEventsTotal  atomic.Uint64
	deploymentsTotal    atomic.Uint64

	httpServerErrorsTotal atomic.Uint64

	parseDuration = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 20000, 30000, 60000, 120000})
	httpDuration  = newHistogram([]float64{5, 25, 100, 250, 1000, 5000, 30000})
)

// IncParseStarted increments the started counter.
func IncParseStarted() {
	parseStartedTotal.Add(1)
}

// IncParseCompleted increments the completed counter.
func IncParseCompleted() {
	parseCompletedTotal.Add(1)
}

// IncParseFailed increments the failed counter.
func IncParseFailed() {
	parseFailedTotal.Add(1)
}

// IncParseJobsReceived counts queue messages picked up by a worker.
func IncParseJobsReceived() {
	parseJobsReceivedTotal.Add(1)
}

func IncParseJobsCompleted() {
	parseJobsCompletedTotal.Add(1)
}

func IncParseJobsFailed() {
	parseJobsFailedTotal.Add(1)
}

// IncParseJobsDeletedUnrecoverable counts messages dropped without processing.
func IncParseJobsDeletedUnrecoverable() {
	parseJobsDeletedUnrecoverableTotal.Add(1)
}

func IncExtractionAttempt() {
	extractionAttemptsTotal.Add(1)
}

func IncExtractionDegraded() {
	extractionDegradedTotal.Add(1)
}

func IncLogoMiss() {
	enrichLogoMissTotal.Add(1)
}

func IncWebhookEvent() {
	webhookEventsTotal.Add(1)
}

func IncDeployment() {
	deploymentsTotal.Add(1)
}

// ObserveParseDurationMs records an end-to-end parse duration in milliseconds.
func ObserveParseDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	parseDuration.Observe(value)
}

// ObserveHTTPRequest records one served request. Only 5xx responses count as
// server errors.
func ObserveHTTPRequest(status int, durationMs float64) {
	if status >= http.StatusInternalServerError {
		httpServerErrorsTotal.Add(1)
	}
	if durationMs < 0 {
		durationMs = 0
	}
	httpDuration.Observe(durationMs)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "parse_started_total", "Total parse jobs started", parseStartedTotal.Load())
	writeCounter(&buf, "parse_completed_total", "Total parse jobs completed", parseCompletedTotal.Load())
	writeCounter(&buf, "parse_failed_total", "Total parse jobs failed", parseFailedTotal.Load())
	writeCounter(&buf, "parse_jobs_received_total", "Parse job messages received by workers", parseJobsReceivedTotal.Load())
	writeCounter(&buf, "parse_jobs_completed_total", "Parse job messages processed and deleted", parseJobsCompletedTotal.Load())
	writeCounter(&buf, "parse_jobs_failed_total", "Parse job messages that failed processing", parseJobsFailedTotal.Load())
	writeCounter(&buf, "parse_jobs_deleted_unrecoverable_total", "Parse job messages deleted as unrecoverable", parseJobsDeletedUnrecoverableTotal.Load())
	writeCounter(&buf, "extraction_attempts_total", "Total structured extraction attempts", extractionAttemptsTotal.Load())
	writeCounter(&buf, "extraction_degraded_total", "Extractions that fell back to the placeholder record", extractionDegradedTotal.Load())
	writeCounter(&buf, "enrich_logo_miss_total", "Organization names left without a logo", enrichLogoMissTotal.Load())
	writeCounter(&buf, "webhook_events_total", "Billing webhook events received", webhookEventsTotal.Load())
	writeCounter(&buf, "deployments_total", "Portfolio deployments started", deploymentsTotal.Load())
	writeCounter(&buf, "http_server_errors_total", "Responses with a 5xx status", httpServerErrorsTotal.Load())
	writeHistogram(&buf, "parse_duration_ms", "Parse duration in milliseconds", parseDuration.Snapshot())
	writeHistogram(&buf, "http_request_duration_ms", "HTTP request duration in milliseconds", httpDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound contains it.
// Counts are made cumulative at render time.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
