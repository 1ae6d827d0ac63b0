package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "draw_callbacks_total",
			Help:      "Total randomness callbacks handled by result and outcome",
		},
		[]string{"result", "outcome"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "draw_callback_duration_ms",
			Help:      "Randomness callback processing duration in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "outcome"},
	)
)

// RecordDraw 记录开奖回调的业务指标
// result: "success" | "fail"
// outcome: "settled" | "sealed" | "mismatch" | "unknown"
func RecordDraw(result, outcome string, started time.Time) {
	res := result
	if res != "success" && res != "success_idempotent" {
		res = "fail"
	}
	oc := strings.ToLower(strings.TrimSpace(outcome))
	if oc == "" {
		oc = "unknown"
	}
	drawTotal.WithLabelValues(res, oc).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	drawDuration.WithLabelValues(res, oc).Observe(durMs)
}
