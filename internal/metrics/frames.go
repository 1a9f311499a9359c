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
	// FramesReceived tracks inbound UDP frames by kind (handshake, secure).
	FramesReceived = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "received_total",
			Help:      "Total number of inbound frames by kind",
		},
		[]string{"kind"},
	)

	// FramesSent tracks outbound UDP frames by kind.
	FramesSent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "sent_total",
			Help:      "Total number of outbound frames by kind",
		},
		[]string{"kind"},
	)

	// FramesDropped tracks frames dropped before reaching a handler,
	// tagged by the reason (send_error, malformed, unknown_type,
	// malformed_hello, no_session).
	FramesDropped = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "dropped_total",
			Help:      "Total number of frames dropped before handler dispatch",
		},
		[]string{"reason"},
	)

	// BytesReceived tracks inbound datagram payload bytes.
	BytesReceived = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "bytes_received_total",
			Help:      "Total bytes read from the UDP socket",
		},
	)

	// BytesSent tracks outbound datagram payload bytes.
	BytesSent = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "bytes_sent_total",
			Help:      "Total bytes written to the UDP socket",
		},
	)

	// DecryptFailures tracks AEAD open failures (CryptoError).
	DecryptFailures = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "decrypt_failures_total",
			Help:      "Total number of AEAD decrypt failures",
		},
	)

	// ReplayRejections tracks nonce-reuse rejections (ReplayError).
	ReplayRejections = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "replay_rejections_total",
			Help:      "Total number of frames rejected for nonce reuse",
		},
	)
)
