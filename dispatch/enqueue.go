// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package dispatch

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"github.com/sage-x-project/chatcore/wirecodec"
)

// Enqueue assigns a fresh msg_id to (kind, data), transmits it to
// sessionID's current address, and enrolls it in the retry queue
// (spec §4.4). Returns the assigned msg_id.
func (d *Dispatcher) Enqueue(ctx context.Context, sessionID, kind string, data any) (string, error) {
	msgID := uuid.NewString()
	inner, err := wirecodec.EncodeInnerPayload(kind, data, msgID)
	if err != nil {
		return "", fmt.Errorf("dispatch: encode inner payload: %w", err)
	}

	rec := &record{
		sessionID:      sessionID,
		msgID:          msgID,
		innerPlaintext: inner,
		attempts:       1,
		nextDeadline:   time.Now().Add(d.cfg.BaseRTO),
	}

	d.mu.Lock()
	d.records[recordKey(sessionID, msgID)] = rec
	heap.Push(&d.pq, rec)
	metrics.RetryQueueDepth.Set(float64(len(d.records)))
	d.mu.Unlock()

	d.transmit(ctx, rec)
	d.notifyWake()
	return msgID, nil
}

// Ack removes the (session_id, msg_id) retry record, if still
// outstanding (spec §4.4 ACK handling).
func (d *Dispatcher) Ack(sessionID, msgID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := recordKey(sessionID, msgID)
	if rec, ok := d.records[key]; ok {
		rec.acked = true
		delete(d.records, key)
		metrics.RetryQueueDepth.Set(float64(len(d.records)))
	}
}

// transmit seals the record's inner plaintext with a fresh nonce and
// sends it to the session's current address. A missing address (the
// session is gone) is logged and left to expire via max_attempts.
func (d *Dispatcher) transmit(ctx context.Context, rec *record) {
	nonce, ciphertext, err := d.sealer.Seal(rec.sessionID, rec.innerPlaintext)
	if err != nil {
		d.log.Warn("dispatch: seal failed", logger.Error(err))
		return
	}
	frame, err := wirecodec.EncodeSecureEnvelope(rec.sessionID, nonce, ciphertext)
	if err != nil {
		d.log.Warn("dispatch: encode envelope failed", logger.Error(err))
		return
	}
	addr, ok := d.sealer.RemoteAddr(rec.sessionID)
	if !ok {
		d.log.Warn("dispatch: no address for session", logger.SessionID(rec.sessionID))
		return
	}
	if err := d.sender.Send(ctx, addr, frame); err != nil {
		d.log.Warn("dispatch: send failed", logger.Error(err))
		return
	}
	metrics.FramesSent.WithLabelValues("secure").Inc()
}
