// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "praxis",
		Subsystem: "ledger",
		Name:      "calls_started_total",
		Help:      "Function call log entries opened.",
	})
	callsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "praxis",
		Subsystem: "ledger",
		Name:      "calls_finished_total",
		Help:      "Function call log entries closed, by final status.",
	}, []string{"status"})
	outputsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "praxis",
		Subsystem: "ledger",
		Name:      "data_outputs_total",
		Help:      "Function data outputs recorded, by data type.",
	}, []string{"data_type"})
	wellOutputsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "praxis",
		Subsystem: "ledger",
		Name:      "well_outputs_total",
		Help:      "Per-well data rows materialized from plate readings.",
	})
)
