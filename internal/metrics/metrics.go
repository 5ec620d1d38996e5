// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers service-level metrics.
type Collector struct {
	messagesPersisted *prometheus.CounterVec
	aiLatency         prometheus.Histogram
	aiFailures        *prometheus.CounterVec
	signInFailures    *prometheus.CounterVec
	feedSubscribers   prometheus.Gauge
}

// NewCollector registers the collectors on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messagesPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aitutor_messages_persisted_total",
			Help: "Messages written to the store, by sender role.",
		}, []string{"sender"}),
		aiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aitutor_ai_latency_seconds",
			Help:    "Latency of AI completion calls.",
			Buckets: prometheus.DefBuckets,
		}),
		aiFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aitutor_ai_failures_total",
			Help: "Failed AI exchanges, by kind (transport or sentinel).",
		}, []string{"kind"}),
		signInFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aitutor_signin_failures_total",
			Help: "Failed sign-in attempts, by provider code.",
		}, []string{"code"}),
		feedSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aitutor_feed_subscribers",
			Help: "Currently open live feed subscriptions.",
		}),
	}

	reg.MustRegister(
		c.messagesPersisted,
		c.aiLatency,
		c.aiFailures,
		c.signInFailures,
		c.feedSubscribers,
	)

	return c
}

// RecordMessagePersisted counts one stored message.
func (c *Collector) RecordMessagePersisted(sender string) {
	c.messagesPersisted.WithLabelValues(sender).Inc()
}

// RecordAILatency observes one completion call's duration.
func (c *Collector) RecordAILatency(d time.Duration) {
	c.aiLatency.Observe(d.Seconds())
}

// RecordAIFailure counts one failed AI exchange.
func (c *Collector) RecordAIFailure(kind string) {
	c.aiFailures.WithLabelValues(kind).Inc()
}

// RecordSignInFailure counts one rejected sign-in.
func (c *Collector) RecordSignInFailure(code string) {
	c.signInFailures.WithLabelValues(code).Inc()
}

// FeedSubscriberOpened tracks a live feed attach.
func (c *Collector) FeedSubscriberOpened() {
	c.feedSubscribers.Inc()
}

// FeedSubscriberClosed tracks a live feed detach.
func (c *Collector) FeedSubscriberClosed() {
	c.feedSubscribers.Dec()
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
