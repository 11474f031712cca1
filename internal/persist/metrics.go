package persist

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelBackend = "backend"
	labelOp      = "op"
	labelResult  = "result"
)

// Metrics are the persistence-layer collectors, shared by every instrumented KV.
type Metrics struct {
	Ops     *prometheus.CounterVec
	Latency *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "state_store_operations_total",
				Help: "Persisted state operations by backend, op and result",
			},
			[]string{labelBackend, labelOp, labelResult},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "state_store_operation_duration_seconds",
				Help:    "Persisted state operation latency",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{labelBackend, labelOp},
		),
	}
	reg.MustRegister(m.Ops, m.Latency)
	return m
}

type instrumented struct {
	next    KV
	backend string
	m       *Metrics
}

// Instrument wraps kv so that every call is counted and timed.
func Instrument(kv KV, backend string, m *Metrics) KV {
	return &instrumented{next: kv, backend: backend, m: m}
}

func (k *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	k.m.Latency.WithLabelValues(k.backend, op).Observe(time.Since(start).Seconds())
	k.m.Ops.WithLabelValues(k.backend, op, result).Inc()
}

func (k *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := k.next.Ping(ctx)
	k.observe("ping", start, err)
	return err
}

func (k *instrumented) Load(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	data, found, err := k.next.Load(ctx, key)
	op := "load"
	if err == nil && !found {
		op = "load_miss"
	}
	k.observe(op, start, err)
	return data, found, err
}

func (k *instrumented) Save(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := k.next.Save(ctx, key, data)
	k.observe("save", start, err)
	return err
}
