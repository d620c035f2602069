package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatwatch_messages_processed_total",
		Help: "New messages that went through the pipeline, by source.",
	}, []string{"source"})

	duplicateCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatwatch_messages_duplicate_total",
		Help: "Messages skipped by the per-source dedup cache, by source.",
	}, []string{"source"})

	matchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatwatch_keyword_matches_total",
		Help: "Messages that hit a keyword, by source.",
	}, []string{"source"})

	pollErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatwatch_poll_errors_total",
		Help: "Failed poll attempts, by source.",
	}, []string{"source"})
)
