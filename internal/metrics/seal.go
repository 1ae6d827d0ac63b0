package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	revealTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "seal_reveal_total",
			Help:      "Total seal reveal attempts by result and source",
		},
		[]string{"result", "source"},
	)

	revealDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "seal_reveal_duration_ms",
			Help:      "Seal reveal processing duration in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "source"},
	)
)

// RecordReveal 记录封存揭晓的业务指标
// result: "success" | "fail"
// source: "unlock" 时间锁回调 | "emergency" 紧急通道
func RecordReveal(result, source string, started time.Time) {
	res := result
	if res != "success" && res != "success_idempotent" {
		res = "fail"
	}
	src := strings.ToLower(strings.TrimSpace(source))
	if src == "" {
		src = "unknown"
	}
	revealTotal.WithLabelValues(res, src).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	revealDuration.WithLabelValues(res, src).Observe(durMs)
}
