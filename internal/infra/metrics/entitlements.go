package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		entitlementResolutionsTotal,
		entitlementStrategyHitsTotal,
		billingResyncTotal,
	)
}

var (
	entitlementResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_resolutions_total",
			Help: "Entitlement resolutions by resolved plan and active flag.",
		},
		[]string{"plan", "active"},
	)

	entitlementStrategyHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_strategy_hits_total",
			Help: "Live-subscription lookups won per search strategy.",
		},
		[]string{"strategy"}, // 'stored-customer', 'email-fallback'
	)

	billingResyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_resync_total",
			Help: "Billing records processed by the resync worker, by outcome.",
		},
		[]string{"outcome"}, // 'renewed', 'lapsed', 'error'
	)
)

func IncEntitlementResolved(plan string, active bool) {
	entitlementResolutionsTotal.WithLabelValues(plan, strconv.FormatBool(active)).Inc()
}

func IncEntitlementStrategyHit(strategy string) {
	entitlementStrategyHitsTotal.WithLabelValues(strategy).Inc()
}

func IncBillingResync(outcome string) {
	billingResyncTotal.WithLabelValues(outcome).Inc()
}
