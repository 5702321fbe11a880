package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/request"
)

// Metrics records dispatch and request lifecycle activity.
type Metrics struct {
	dispatches *prometheus.CounterVec
	inFlight   prometheus.Gauge
	completed  prometheus.Counter
	failures   prometheus.Counter
	duration   prometheus.Histogram

	mu      sync.Mutex
	started map[string]time.Time
	now     func() time.Time
}

var (
	registerOnce sync.Once
	defaultSet   *Metrics
)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vuo",
				Subsystem: "dispatch",
				Name:      "payloads_total",
				Help:      "Payloads dispatched on the bus.",
			},
			[]string{"type"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "vuo",
				Subsystem: "request",
				Name:      "in_flight",
				Help:      "Requests between requestBegin and requestEnd.",
			},
		),
		completed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vuo",
				Subsystem: "request",
				Name:      "completed_total",
				Help:      "Requests that reached requestEnd.",
			},
		),
		failures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vuo",
				Subsystem: "request",
				Name:      "errors_total",
				Help:      "Requests that ended with requestError.",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vuo",
				Subsystem: "request",
				Name:      "duration_seconds",
				Help:      "Time from requestBegin to requestEnd in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		started: make(map[string]time.Time),
		now:     time.Now,
	}

	for _, c := range []prometheus.Collector{m.dispatches, m.inFlight, m.completed, m.failures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DefaultMetrics returns the process-wide metrics registered with the
// default prometheus registry.
func DefaultMetrics() *Metrics {
	registerOnce.Do(func() {
		m, err := NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
		defaultSet = m
	})
	return defaultSet
}

// Observe installs m as a hook on bus.
func (m *Metrics) Observe(bus *dispatch.Bus) {
	bus.Observe(m.Record)
}

// Record accounts for one dispatched payload.
func (m *Metrics) Record(p dispatch.Payload) {
	typ := p.Type()
	m.dispatches.WithLabelValues(typ).Inc()

	id, _ := p[request.KeyID].(string)

	switch typ {
	case request.BeginID.String():
		m.inFlight.Inc()
		m.mu.Lock()
		m.started[id] = m.now()
		m.mu.Unlock()

	case request.ErrorID.String():
		m.failures.Inc()

	case request.EndID.String():
		m.inFlight.Dec()
		m.completed.Inc()
		m.mu.Lock()
		start, ok := m.started[id]
		delete(m.started, id)
		m.mu.Unlock()
		if ok {
			m.duration.Observe(m.now().Sub(start).Seconds())
		}
	}
}
