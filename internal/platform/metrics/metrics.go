package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CertificatesApproved   prometheus.Counter
	CertificatesRejected   prometheus.Counter
	CertificatesSuperseded prometheus.Counter
	CalibrationsCompleted  prometheus.Counter
	ReviewsCompleted       prometheus.Counter
	TicketsCreated         prometheus.Counter
	TicketsFailed          prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CertificatesApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metrolab_certificates_approved_total",
			Help: "Total number of calibration certificates approved by QA review",
		}),
		CertificatesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metrolab_certificates_rejected_total",
			Help: "Total number of calibration certificates rejected by QA review",
		}),
		CertificatesSuperseded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metrolab_certificates_superseded_total",
			Help: "Total number of certificates superseded by a new version",
		}),
		CalibrationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metrolab_calibrations_completed_total",
			Help: "Total number of calibration records moved to completed",
		}),
		ReviewsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metrolab_reviews_completed_total",
			Help: "Total number of instrument reviews completed",
		}),
		TicketsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metrolab_tickets_created_total",
			Help: "Total number of external tickets created for reviews",
		}),
		TicketsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metrolab_tickets_failed_total",
			Help: "Total number of failed external ticket operations",
		}),
	}
}
