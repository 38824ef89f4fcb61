package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Check-in attempts by outcome",
		},
		[]string{"event_id", "outcome"},
	)

	checkInDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkin_duration_seconds",
			Help:    "Time spent in the check-in store transition",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	grantValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grant_validations_total",
			Help: "Access grant validations by outcome",
		},
		[]string{"outcome"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets issued by registration kind",
		},
		[]string{"kind"},
	)

	paymentVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Payment signature verifications by result",
		},
		[]string{"result"},
	)
)

type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Handler exposes the default registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.Handler()
}

// Track check-in outcome
func (m *Monitor) TrackCheckIn(eventID, outcome string, duration time.Duration) {
	checkIns.WithLabelValues(eventID, outcome).Inc()
	checkInDuration.Observe(duration.Seconds())
}

func (m *Monitor) TrackGrantValidation(outcome string) {
	grantValidations.WithLabelValues(outcome).Inc()
}

func (m *Monitor) TrackTicketIssued(kind string) {
	ticketsIssued.WithLabelValues(kind).Inc()
}

func (m *Monitor) TrackPaymentVerification(verified bool) {
	result := "mismatch"
	if verified {
		result = "verified"
	}
	paymentVerifications.WithLabelValues(result).Inc()
}
