// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	placementRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rackplace_placement_requests_total",
		Help: "Placement requests by policy and result (complete, partial, empty)",
	}, []string{"policy", "result"})

	placementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rackplace_placement_duration_seconds",
		Help:    "Time spent choosing targets for one block",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	}, []string{"policy"})

	placementFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rackplace_placement_best_effort_fallbacks_total",
		Help: "Placements that could not spread evenly and fell back to best effort",
	}, []string{"policy"})

	bestEffortRounds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rackplace_placement_best_effort_rounds_total",
		Help: "Best effort rounds run with a relaxed per-rack cap",
	}, []string{"policy"})

	staleRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rackplace_placement_stale_retries_total",
		Help: "Placements retried with stale nodes allowed",
	}, []string{"policy"})

	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rackplace_placement_verifications_total",
		Help: "Placement verifications by policy and whether the rack spread was satisfied",
	}, []string{"policy", "satisfied"})
)
