package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// NotificationMetrics counts per-recipient email outcomes.
type NotificationMetrics struct {
	sends *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	sends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "sent_total",
		Help:      "Notification emails by outcome.",
	}, []string{"kind", "result"})
	reg.MustRegister(sends)
	return &NotificationMetrics{sends: sends}
}

func (n *NotificationMetrics) Inc(kind, result string) {
	if n == nil || n.sends == nil {
		return
	}
	n.sends.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}
