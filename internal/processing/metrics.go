package processing

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records fit outcomes. Register it on a dedicated registry; the CLI
// writes that registry out as a Prometheus text file.
type Metrics struct {
	fits     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rSquared *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fourpl_fits_total",
				Help: "Completed 4PL fits by winning method and optimizer status",
			},
			[]string{"method", "status"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fourpl_fit_failures_total",
				Help: "4PL fits that returned an error",
			},
			[]string{"method"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fourpl_fit_duration_seconds",
				Help:    "Wall time of a 4PL fit",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"method"},
		),
		rSquared: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fourpl_last_r_squared",
				Help: "R-squared of the most recent fit",
			},
			[]string{"method"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.fits, m.failures, m.duration, m.rSquared)
	}
	return m
}

func (m *Metrics) observe(report Report, seconds float64) {
	if m == nil {
		return
	}
	m.fits.WithLabelValues(report.Method, report.Status).Inc()
	m.duration.WithLabelValues(report.Method).Observe(seconds)
	m.rSquared.WithLabelValues(report.Method).Set(float64(report.RSquared))
}

func (m *Metrics) failed(method string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(method).Inc()
}
