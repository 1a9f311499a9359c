// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rooms tracks total rooms in the repository.
	Rooms = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "rooms",
			Help:      "Number of rooms currently persisted",
		},
	)

	// Members tracks total room memberships.
	Members = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "members",
			Help:      "Number of room memberships currently persisted",
		},
	)

	// RetryQueueDepth tracks the reliable dispatcher's pending retry records.
	RetryQueueDepth = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "retry_queue_depth",
			Help:      "Number of outbound payloads awaiting ACK",
		},
	)

	// Retransmissions counts dispatcher retransmissions.
	Retransmissions = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "retransmissions_total",
			Help:      "Total number of retransmitted outbound payloads",
		},
	)

	// DispatchExhausted tracks records dropped after max_attempts.
	DispatchExhausted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "exhausted_total",
			Help:      "Total number of outbound payloads dropped after exhausting retries",
		},
	)

	// AIRequests tracks AI bridge submissions by outcome.
	AIRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total number of AI bridge requests by outcome",
		},
		[]string{"outcome"}, // rejected_saturated, prompt_error, generator_error, join_error, post_error, success
	)

	// AIRequestDuration tracks generator call latency.
	AIRequestDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "AI generator call duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)
