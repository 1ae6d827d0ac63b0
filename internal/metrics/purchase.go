package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "ticket_purchase_total",
			Help:      "Total ticket purchase requests by result",
		},
		[]string{"result"},
	)

	purchaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "ticket_purchase_duration_ms",
			Help:      "Ticket purchase duration in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordPurchase records business metrics for a ticket purchase call.
// result should be "success", "success_idempotent" or "fail".
func RecordPurchase(result string, started time.Time) {
	res := result
	if res != "success" && res != "success_idempotent" {
		res = "fail"
	}
	purchaseTotal.WithLabelValues(res).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	purchaseDuration.WithLabelValues(res).Observe(durMs)
}
