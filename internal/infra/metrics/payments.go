package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		checkoutSessionsTotal,
		webhookEventsTotal,
		rateLimitBlocksTotal,
		providerCallLatencyMs,
	)
}

var (
	checkoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Hosted checkout sessions created, by plan.",
		},
		[]string{"plan"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Verified payment webhook events received, by normalized type.",
		},
		[]string{"type"},
	)

	rateLimitBlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_blocks_total",
			Help: "Requests rejected by the checkout rate limiter.",
		},
	)

	providerCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_provider_call_latency_ms",
			Help:    "Payment provider API call latency in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"op", "success"},
	)
)

func IncCheckoutSessions(plan string) {
	checkoutSessionsTotal.WithLabelValues(plan).Inc()
}

func IncWebhookEvents(eventType string) {
	webhookEventsTotal.WithLabelValues(eventType).Inc()
}

func IncRateLimitBlocks() {
	rateLimitBlocksTotal.Inc()
}

func ObserveProviderCall(op string, start time.Time, err error) {
	providerCallLatencyMs.
		WithLabelValues(op, strconv.FormatBool(err == nil)).
		Observe(float64(time.Since(start).Milliseconds()))
}
