// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"futurebank/internal/core"
	"futurebank/internal/ledger"
)

// Redemption outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeOverdraft = "overdraft"
)

// RecordsAppended counts records written, by direction.
var RecordsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "futurebank",
	Subsystem: "ledger",
	Name:      "records_appended_total",
	Help:      "Total ledger records appended.",
}, []string{"direction"})

// Redemptions counts redemption attempts by outcome.
var Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "futurebank",
	Subsystem: "ledger",
	Name:      "redemptions_total",
	Help:      "Total ticket redemptions by outcome (accepted, rejected, overdraft).",
}, []string{"outcome"})

// StoreErrors counts failed store operations.
var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "futurebank",
	Subsystem: "store",
	Name:      "errors_total",
	Help:      "Total failed store operations by operation.",
}, []string{"op"})

// SyncPublishErrors counts sync messages that could not be published.
var SyncPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "futurebank",
	Subsystem: "sync",
	Name:      "publish_errors_total",
	Help:      "Total passbook sync messages that failed to publish.",
})

// ReadDuration observes full-ledger read latency.
var ReadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "futurebank",
	Subsystem: "store",
	Name:      "read_all_duration_seconds",
	Help:      "Latency of full ledger reads.",
	Buckets:   prometheus.DefBuckets,
}, []string{"backend"})

// HTTPRequests counts served requests by method and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "futurebank",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method and status code.",
}, []string{"method", "status"})

// RateLimited counts requests refused by the rate limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "futurebank",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Total requests rejected with 429.",
})

// instrumented decorates a ledger.Store with the collectors above.
type instrumented struct {
	next    ledger.Store
	backend string
}

// Instrument wraps store so every call is counted and timed under backend.
func Instrument(store ledger.Store, backend string) ledger.Store {
	return &instrumented{next: store, backend: backend}
}

func (s *instrumented) Append(ctx context.Context, r core.Record) (string, error) {
	ref, err := s.next.Append(ctx, r)
	if err != nil {
		StoreErrors.WithLabelValues("append").Inc()
		return "", err
	}
	RecordsAppended.WithLabelValues(string(r.Direction)).Inc()
	return ref, nil
}

func (s *instrumented) ReadAll(ctx context.Context) ([]core.Record, error) {
	start := time.Now()
	recs, err := s.next.ReadAll(ctx)
	ReadDuration.WithLabelValues(s.backend).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreErrors.WithLabelValues("read").Inc()
	}
	return recs, err
}
