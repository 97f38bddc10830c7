// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "praxis",
		Subsystem: "worker",
		Name:      "tasks_claimed_total",
		Help:      "Dispatch tasks claimed by this worker.",
	})
	tasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "praxis",
		Subsystem: "worker",
		Name:      "tasks_completed_total",
		Help:      "Dispatch tasks settled successfully.",
	})
	tasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "praxis",
		Subsystem: "worker",
		Name:      "tasks_failed_total",
		Help:      "Dispatch task attempts that failed.",
	})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "praxis",
		Subsystem: "worker",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of protocol run executions.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 16),
	})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "praxis",
		Subsystem: "worker",
		Name:      "queue_depth",
		Help:      "Pending dispatch tasks on this worker's topics.",
	})
)
