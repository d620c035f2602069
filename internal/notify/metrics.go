package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sentCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatwatch_notify_sent_total",
		Help: "Alerts delivered, by channel.",
	}, []string{"channel"})

	failedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatwatch_notify_failed_total",
		Help: "Alert deliveries that errored or timed out, by channel.",
	}, []string{"channel"})

	cooledCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwatch_notify_cooled_total",
		Help: "Alerts suppressed by the per-keyword cooldown.",
	})

	droppedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwatch_notify_dropped_total",
		Help: "Alerts dropped because the dispatch queue was full.",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatwatch_notify_queue_depth",
		Help: "Alerts waiting in the dispatch queue.",
	})
)
