package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "prize_claim_total",
			Help:      "Total prize claim requests by result",
		},
		[]string{"result"},
	)

	claimDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "prize_claim_duration_ms",
			Help:      "Prize claim duration in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordClaim 记录领奖的业务指标
func RecordClaim(result string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	claimTotal.WithLabelValues(res).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	claimDuration.WithLabelValues(res).Observe(durMs)
}
