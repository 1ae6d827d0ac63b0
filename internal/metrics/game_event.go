package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gameEventTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "game_event_total",
			Help:      "Total game lifecycle events handled by result and event_type",
		},
		[]string{"result", "event_type"},
	)

	gameEventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "game_event_duration_ms",
			Help:      "Game lifecycle event handling duration in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "event_type"},
	)
)

// RecordGameEvent 记录生命周期事件的业务指标
// result: "success" | "fail"
// eventType: 事件类型（小写，如 game_create/game_end/pause/resume）
func RecordGameEvent(result, eventType string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	et := strings.ToLower(strings.TrimSpace(eventType))
	if et == "" {
		et = "unknown"
	}
	gameEventTotal.WithLabelValues(res, et).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	gameEventDuration.WithLabelValues(res, et).Observe(durMs)
}
