// Package metrics exports resolver activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zjrosen/nsresolve/internal/namespace"
	"github.com/zjrosen/nsresolve/internal/pubsub"
)

const metricNamespace = "nsresolve"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector turns resolver events into Prometheus metrics.
// Each Collector owns its registry, so tests and multiple servers do not
// collide on the default registerer.
type Collector struct {
	registry *prometheus.Registry

	loads           *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	mappings        *prometheus.GaugeVec
	dropped         prometheus.CounterFunc
}

// New creates a collector. dropped, if non-nil, is exported as the number of
// events the broker discarded for slow subscribers.
func New(dropped func() uint64) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "mapping_loads_total",
			Help:      "Mapping table loads by result.",
		}, []string{"result"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "resolutions_total",
			Help:      "Handler promotions by result. Cached lookups are not counted.",
		}, []string{"result"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time to construct and initialize a handler.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		mappings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "mappings",
			Help:      "Number of declared mappings in the last table loaded by each resolver.",
		}, []string{"resolver", "location"}),
	}

	c.registry.MustRegister(
		c.loads,
		c.resolutions,
		c.resolveDuration,
		c.mappings,
		collectors.NewGoCollector(),
	)
	if dropped != nil {
		c.dropped = prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber was not keeping up.",
		}, func() float64 { return float64(dropped()) })
		c.registry.MustRegister(c.dropped)
	}
	return c
}

// Observe records one event.
func (c *Collector) Observe(kind pubsub.EventType, ev namespace.Event) {
	switch kind {
	case pubsub.LoadedEvent:
		c.loads.WithLabelValues(ResultOK).Inc()
		c.mappings.WithLabelValues(ev.ResolverID, ev.Location).Set(float64(ev.Count))
	case pubsub.ResolvedEvent:
		c.resolutions.WithLabelValues(ResultOK).Inc()
		c.resolveDuration.Observe(ev.Duration.Seconds())
	case pubsub.FailedEvent:
		if ev.Key == "" {
			c.loads.WithLabelValues(ResultError).Inc()
			return
		}
		c.resolutions.WithLabelValues(ResultError).Inc()
		c.resolveDuration.Observe(ev.Duration.Seconds())
	}
}

// Run observes events from sub until ctx is done or the subscription closes.
func (c *Collector) Run(ctx context.Context, sub pubsub.Subscriber[namespace.Event]) {
	ch := sub.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.Observe(ev.Type, ev.Payload)
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
