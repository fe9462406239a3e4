// Package metrics holds the Prometheus recorders exported by the server and
// the worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "witverse"

// Metrics holds all the available internal metrics
type Metrics struct {
	// APIResponseDurationsMilliseconds is the time taken to complete API responses.
	//
	// Labels: route (chi route pattern), method, status_code
	APIResponseDurationsMilliseconds *prometheus.HistogramVec

	// APIHandlerPanicsTotal counts handlers which panicked.
	//
	// Labels: route, method
	APIHandlerPanicsTotal *prometheus.CounterVec

	// DraftSessionsActive is the number of draft sessions held in memory.
	DraftSessionsActive prometheus.Gauge

	// SubmissionsTotal counts final submissions.
	//
	// Labels: outcome ("created" or the failing step, e.g. "Screenshot")
	SubmissionsTotal *prometheus.CounterVec

	// UploadDurationsMilliseconds is the time taken by single object uploads.
	//
	// Labels: bucket, successful (0 = fail, 1 = success)
	UploadDurationsMilliseconds *prometheus.HistogramVec

	// OrphansReportedTotal counts objects left behind by failed submissions.
	OrphansReportedTotal prometheus.Counter

	// CleanupObjectsTotal counts objects handled by the cleanup worker.
	//
	// Labels: result (removed, failed)
	CleanupObjectsTotal *prometheus.CounterVec
}

// NewMetrics creates the recorders and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIResponseDurationsMilliseconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "response_durations_milliseconds",
			Help:      "Time, in milliseconds, it took to respond to API requests",
		}, []string{"route", "method", "status_code"}),
		APIHandlerPanicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "handler_panics_total",
			Help:      "Total number of HTTP handlers which have panicked while processing a request",
		}, []string{"route", "method"}),
		DraftSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "drafts",
			Name:      "sessions_active",
			Help:      "Number of draft sessions held in memory",
		}),
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "total",
			Help:      "Total number of final submissions by outcome",
		}, []string{"outcome"}),
		UploadDurationsMilliseconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "upload_durations_milliseconds",
			Help:      "Duration, in milliseconds, of single object uploads",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 12),
		}, []string{"bucket", "successful"}),
		OrphansReportedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "orphans_reported_total",
			Help:      "Objects uploaded by failed submissions and queued for cleanup",
		}),
		CleanupObjectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cleanup_objects_total",
			Help:      "Objects processed by the orphan cleanup task",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.APIResponseDurationsMilliseconds,
			m.APIHandlerPanicsTotal,
			m.DraftSessionsActive,
			m.SubmissionsTotal,
			m.UploadDurationsMilliseconds,
			m.OrphansReportedTotal,
			m.CleanupObjectsTotal,
		)
	}
	return m
}

// StartTimer starts a Timer for the provided observer.
func (m *Metrics) StartTimer() Timer {
	return Timer{startTime: time.Now()}
}

// Timer measures the duration of an operation in milliseconds.
type Timer struct {
	startTime time.Time
}

// Finish records the milliseconds elapsed since the timer started.
func (t Timer) Finish(observer prometheus.Observer) {
	observer.Observe(float64(time.Since(t.startTime)) / float64(time.Millisecond))
}

// Successful renders a boolean label value.
func Successful(ok bool) string {
	if ok {
		return "1"
	}
	return "0"
}
