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
	applicationsSubmittedTotal atomic.Uint64
	applicationsWithdrawnTotal atomic.Uint64
	acceptsTotal               atomic.Uint64
	quotaRejectionsTotal       atomic.Uint64
	cascadesTotal              atomic.Uint64
	cascadedApplicationsTotal  atomic.Uint64
	noSlotTotal                atomic.Uint64
	notificationFailuresTotal  atomic.Uint64
	remindersSentTotal         atomic.Uint64

	acceptDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500})
)

// IncApplicationSubmitted counts a committed apply.
func IncApplicationSubmitted() {
	applicationsSubmittedTotal.Add(1)
}

// IncApplicationWithdrawn counts a committed withdrawal.
func IncApplicationWithdrawn() {
	applicationsWithdrawnTotal.Add(1)
}

// IncAccept counts a committed acceptance, including invitations.
func IncAccept() {
	acceptsTotal.Add(1)
}

// IncQuotaRejection counts an apply or accept refused because the quota is full.
func IncQuotaRejection() {
	quotaRejectionsTotal.Add(1)
}

// AddCascade counts one saturation cascade and the applications it closed.
func AddCascade(closed int) {
	cascadesTotal.Add(1)
	if closed > 0 {
		cascadedApplicationsTotal.Add(uint64(closed))
	}
}

// IncNoSlot counts an accept that found no free grid cell.
func IncNoSlot() {
	noSlotTotal.Add(1)
}

// IncNotificationFailed counts a notification the sink could not deliver.
func IncNotificationFailed() {
	notificationFailuresTotal.Add(1)
}

// AddRemindersSent counts reminder notifications handed to the sink.
func AddRemindersSent(n int) {
	if n > 0 {
		remindersSentTotal.Add(uint64(n))
	}
}

// ObserveAcceptDurationMs records the duration of an accept transaction in milliseconds.
func ObserveAcceptDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	acceptDuration.Observe(value)
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
	writeCounter(&buf, "placement_applications_submitted_total", "Total applications submitted", applicationsSubmittedTotal.Load())
	writeCounter(&buf, "placement_applications_withdrawn_total", "Total applications withdrawn", applicationsWithdrawnTotal.Load())
	writeCounter(&buf, "placement_accepts_total", "Total applications accepted with an interview", acceptsTotal.Load())
	writeCounter(&buf, "placement_quota_rejections_total", "Total operations refused by a full quota", quotaRejectionsTotal.Load())
	writeCounter(&buf, "placement_cascades_total", "Total saturation cascades", cascadesTotal.Load())
	writeCounter(&buf, "placement_cascaded_applications_total", "Total applications closed by cascades", cascadedApplicationsTotal.Load())
	writeCounter(&buf, "placement_no_slot_total", "Total accepts without a free interview slot", noSlotTotal.Load())
	writeCounter(&buf, "placement_notification_failures_total", "Total notifications not delivered", notificationFailuresTotal.Load())
	writeCounter(&buf, "placement_reminders_sent_total", "Total interview reminders sent", remindersSentTotal.Load())
	writeHistogram(&buf, "placement_accept_duration_ms", "Accept transaction duration in milliseconds", acceptDuration.Snapshot())
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

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
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
