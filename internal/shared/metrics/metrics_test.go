package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	var sb strings.Builder
	snap := h.Snapshot()
	var cumulative uint64
	for i := range snap.buckets {
		cumulative += snap.counts[i]
		sb.WriteString(formatFloat(snap.buckets[i]))
		sb.WriteString("=")
		sb.WriteString(formatFloat(float64(cumulative)))
		sb.WriteString(" ")
	}
	if got := sb.String(); got != "10=1 100=2 " {
		t.Fatalf("unexpected buckets %q", got)
	}
	if snap.count != 3 || snap.sum != 555 {
		t.Fatalf("unexpected count/sum %d/%v", snap.count, snap.sum)
	}
}

func TestHandlerRendersPlacementCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	AddCascade(2)
	IncNotificationFailed()

	r := gin.New()
	r.GET("/metrics", Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"# TYPE placement_cascades_total counter",
		"placement_cascaded_applications_total ",
		"placement_notification_failures_total ",
		"placement_accept_duration_ms_bucket{le=\"+Inf\"}",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}
