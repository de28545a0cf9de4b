package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/prometheus/client_golang/prometheus"
)

// Event outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeErrors  = "errors"
	OutcomeAborted = "aborted"
)

var (
	registerOnce sync.Once

	eventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fastmon",
			Subsystem: "events",
			Name:      "processed_total",
			Help:      "Events processed, by outcome.",
		},
		[]string{"outcome"},
	)
	occurrences = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fastmon",
			Subsystem: "events",
			Name:      "error_occurrences_total",
			Help:      "Decode error occurrences, by category.",
		},
		[]string{"category"},
	)
	decodeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fastmon",
			Subsystem: "decoder",
			Name:      "duration_seconds",
			Help:      "Record decode duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
	)
	skippedWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fastmon",
			Subsystem: "decoder",
			Name:      "skipped_writes_total",
			Help:      "Writes dropped for coordinates outside the declared geometry.",
		},
	)
	commits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fastmon",
			Subsystem: "sink",
			Name:      "commits_total",
			Help:      "Snapshots handed to the output sink.",
		},
		[]string{"success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fastmon",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status endpoint requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fastmon",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status endpoint request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(eventsProcessed, occurrences, decodeDuration, skippedWrites, commits, httpRequests, httpDuration)
	})
}

// Outcome classifies a flushed event summary.
func Outcome(s eventerr.Summary) string {
	switch {
	case s.Aborted():
		return OutcomeAborted
	case !s.Empty():
		return OutcomeErrors
	default:
		return OutcomeOK
	}
}

func RecordEvent(s eventerr.Summary, decode time.Duration, skipped int) {
	RegisterMetrics()
	eventsProcessed.WithLabelValues(Outcome(s)).Inc()
	for _, o := range s.Occurrences {
		occurrences.WithLabelValues(o.Category.String()).Inc()
	}
	decodeDuration.Observe(decode.Seconds())
	if skipped > 0 {
		skippedWrites.Add(float64(skipped))
	}
}

func RecordCommit(success bool) {
	RegisterMetrics()
	commits.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
