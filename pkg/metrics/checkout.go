package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts checkout lifecycle transitions.
type CheckoutMetrics struct {
	transitions *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "transitions_total",
		Help:      "Cart checkout transitions by outcome.",
	}, []string{"transition"})
	reg.MustRegister(transitions)
	return &CheckoutMetrics{transitions: transitions}
}

// Inc records a transition such as session_created, completed, refunded or released.
func (c *CheckoutMetrics) Inc(transition string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(transition)).Inc()
}
