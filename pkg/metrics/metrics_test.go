package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "pending_cart_release"
	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)
	m.IncFailure("")

	if got := testutil.ToFloat64(m.success.WithLabelValues(job)); got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty job label to normalize to unknown, got %f", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 1 {
		t.Fatalf("expected one duration series, got %d", n)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("x")
	var server *ServerMetrics
	server.Observe("/x", "GET", 200, time.Millisecond)
	var notifications *NotificationMetrics
	notifications.Inc("event_published", ResultSent)
	NewCheckoutMetrics(nil).Inc("completed")
}

func TestServerMetricsExposedThroughHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "api")
	m.Observe("/cart", "POST", 200, 12*time.Millisecond)

	notify := NewNotificationMetrics(reg)
	notify.Inc("event_published", ResultFailed)

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`eventhub_api_http_requests_total{method="POST",route="/cart",status="200"} 1`,
		`eventhub_notifications_sent_total{kind="event_published",result="failed"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}
