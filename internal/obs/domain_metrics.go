package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ReconcileTotal counts cart reconciliation runs by outcome.
	ReconcileTotal *prometheus.CounterVec
	// DiscountApplyTotal counts apply/remove operations per discount source.
	DiscountApplyTotal *prometheus.CounterVec
	// PWPSuspensionTotal counts reward-line suspensions and restorations.
	PWPSuspensionTotal *prometheus.CounterVec
	// PriceSyncRequiredTotal counts line items flagged for price confirmation.
	PriceSyncRequiredTotal prometheus.Counter
	// UpstreamDegradedTotal counts lookups that degraded to a partial result.
	UpstreamDegradedTotal *prometheus.CounterVec
	// TierCacheTotal tracks price-tier cache hits and misses.
	TierCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_reconcile_total",
			Help:      "Count of cart reconciliation runs by outcome.",
		}, []string{"result"})
		DiscountApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_apply_total",
			Help:      "Count of discount apply/remove operations by source and result.",
		}, []string{"source", "op", "result"})
		PWPSuspensionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pwp_suspension_total",
			Help:      "Count of PWP reward suspensions and restorations.",
		}, []string{"action"})
		PriceSyncRequiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_sync_required_total",
			Help:      "Number of line items flagged as needing a price confirmation.",
		})
		UpstreamDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_degraded_total",
			Help:      "Count of upstream lookups that degraded to a partial result.",
		}, []string{"target"})
		TierCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_cache_total",
			Help:      "Price tier cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, ReconcileTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReconcileTotal = v
			}
		})
		mustRegisterCollector(reg, DiscountApplyTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountApplyTotal = v
			}
		})
		mustRegisterCollector(reg, PWPSuspensionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PWPSuspensionTotal = v
			}
		})
		mustRegisterCollector(reg, PriceSyncRequiredTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PriceSyncRequiredTotal = v
			}
		})
		mustRegisterCollector(reg, UpstreamDegradedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				UpstreamDegradedTotal = v
			}
		})
		mustRegisterCollector(reg, TierCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TierCacheTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
