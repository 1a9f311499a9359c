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
	"time"

	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/internal/metrics"
)

// run is the single retry task: it sleeps until the nearest deadline,
// retransmits or drops due records, and wakes early on Enqueue.
func (d *Dispatcher) run() {
	defer close(d.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := d.nextWait()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
			d.processDue()
		case <-d.wake:
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) nextWait() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pq) == 0 {
		return time.Hour
	}
	wait := time.Until(d.pq[0].nextDeadline)
	if wait < 0 {
		wait = 0
	}
	return wait
}

// processDue retransmits or drops every record whose deadline has passed.
func (d *Dispatcher) processDue() {
	now := time.Now()
	for {
		d.mu.Lock()
		if len(d.pq) == 0 || d.pq[0].nextDeadline.After(now) {
			d.mu.Unlock()
			return
		}
		rec := heap.Pop(&d.pq).(*record)
		if rec.acked {
			d.mu.Unlock()
			continue
		}

		rec.attempts++
		if rec.attempts > d.cfg.MaxAttempts {
			delete(d.records, recordKey(rec.sessionID, rec.msgID))
			metrics.RetryQueueDepth.Set(float64(len(d.records)))
			d.mu.Unlock()
			metrics.DispatchExhausted.Inc()
			d.log.Warn("dispatch: exhausted retries, dropping",
				logger.SessionID(rec.sessionID),
				logger.MsgID(rec.msgID))
			continue
		}

		rec.nextDeadline = now.Add(backoff(d.cfg, rec.attempts))
		heap.Push(&d.pq, rec)
		d.mu.Unlock()

		metrics.Retransmissions.Inc()
		d.transmit(context.Background(), rec)
	}
}

// backoff computes the retransmission deadline for an attempt count:
// base_rto, doubling each attempt, capped at max_rto (spec §4.4).
func backoff(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseRTO
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxRTO {
			return cfg.MaxRTO
		}
	}
	if delay > cfg.MaxRTO {
		delay = cfg.MaxRTO
	}
	return delay
}
