package booking

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	created   prometheus.Counter
	rejected  *prometheus.CounterVec
	cancelled prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dojobook",
			Name:      "bookings_created_total",
			Help:      "Bookings confirmed.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dojobook",
			Name:      "bookings_rejected_total",
			Help:      "Booking requests rejected, by reason.",
		}, []string{"reason"}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dojobook",
			Name:      "bookings_cancelled_total",
			Help:      "Bookings cancelled.",
		}),
	}
	reg.MustRegister(m.created, m.rejected, m.cancelled)
	return m
}

func (m *Metrics) incCreated() {
	if m != nil {
		m.created.Inc()
	}
}

func (m *Metrics) incRejected(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) incCancelled() {
	if m != nil {
		m.cancelled.Inc()
	}
}
