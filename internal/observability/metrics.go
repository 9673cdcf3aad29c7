package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framesink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framesink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	sinkMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framesink",
			Subsystem: "sink",
			Name:      "messages_total",
			Help:      "Messages queued (out) or decoded (in) by sinks.",
		},
		[]string{"node", "direction"},
	)
	sinkBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framesink",
			Subsystem: "sink",
			Name:      "payload_bytes_total",
			Help:      "Payload bytes queued (out) or decoded (in) by sinks.",
		},
		[]string{"node", "direction"},
	)
	sinkFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framesink",
			Subsystem: "sink",
			Name:      "faults_total",
			Help:      "Terminal sink faults by kind.",
		},
		[]string{"node", "kind"},
	)
	sinkTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framesink",
			Subsystem: "sink",
			Name:      "state_transitions_total",
			Help:      "Sink lifecycle transitions.",
		},
		[]string{"node", "to"},
	)
	relaySessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "framesink",
			Subsystem: "relay",
			Name:      "sessions_active",
			Help:      "Relay sessions currently open.",
		},
		[]string{"node"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			sinkMessages, sinkBytes, sinkFaults, sinkTransitions,
			relaySessions,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// SessionOpened and SessionClosed track the relay session gauge.
func SessionOpened(node string) {
	RegisterMetrics()
	relaySessions.WithLabelValues(node).Inc()
}

func SessionClosed(node string) {
	RegisterMetrics()
	relaySessions.WithLabelValues(node).Dec()
}

// SinkMetrics feeds sink activity for one node into the shared collectors.
// It satisfies sink.Observer.
type SinkMetrics struct {
	Node string
}

func NewSinkMetrics(node string) SinkMetrics {
	RegisterMetrics()
	return SinkMetrics{Node: node}
}

func (m SinkMetrics) MessageWritten(size int) {
	sinkMessages.WithLabelValues(m.Node, "out").Inc()
	sinkBytes.WithLabelValues(m.Node, "out").Add(float64(size))
}

func (m SinkMetrics) MessageRead(size int) {
	sinkMessages.WithLabelValues(m.Node, "in").Inc()
	sinkBytes.WithLabelValues(m.Node, "in").Add(float64(size))
}

func (m SinkMetrics) Fault(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	sinkFaults.WithLabelValues(m.Node, kind).Inc()
}

func (m SinkMetrics) StateChanged(_, to string) {
	sinkTransitions.WithLabelValues(m.Node, to).Inc()
}
