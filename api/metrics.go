/*
metrics.go - Prometheus instrumentation for the ledger service

PURPOSE:
  Counts redemption calls by protocol and result so operators can see
  signed-vs-legacy traffic, duplicate rates (retry pressure from
  re-delivery), and failure classes. Label cardinality is fixed - no
  per-device or per-transaction labels.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	redemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_redemptions_total",
		Help: "Redemption requests by protocol (signed|receipt) and result (granted|duplicate|invalid_token|invalid_receipt|nothing_redeemable|store_error)",
	}, []string{"protocol", "result"})

	creditsGrantedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_credits_granted_total",
		Help: "Total credits granted across all devices",
	})
)

func init() {
	prometheus.MustRegister(redemptionsTotal, creditsGrantedTotal)
}

func observeRedemption(protocol, result string) {
	redemptionsTotal.WithLabelValues(protocol, result).Inc()
}

// observeGranted records newly granted credits (not duplicates).
func observeGranted(credits int64) {
	if credits > 0 {
		creditsGrantedTotal.Add(float64(credits))
	}
}
