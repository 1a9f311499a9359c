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

// Package dispatch implements the reliable delivery engine of spec
// §4.4: it assigns msg_ids to outbound inner payloads, transmits them,
// and retransmits on a geometric backoff until the peer ACKs or
// max_attempts is exhausted.
package dispatch

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/sage-x-project/chatcore/internal/logger"
)

// Config holds the retransmission schedule (spec §4.4/§6).
type Config struct {
	BaseRTO     time.Duration
	MaxRTO      time.Duration
	MaxAttempts int
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{BaseRTO: time.Second, MaxRTO: 8 * time.Second, MaxAttempts: 5}
}

// Sender transmits an already-framed datagram to a remote address.
// Implemented by the server's UDP socket owner; writes must be
// serialized by the implementation (spec §5).
type Sender interface {
	Send(ctx context.Context, remoteAddr string, frame []byte) error
}

// Sealer resolves a session's current AEAD key and remote address, so
// the dispatcher can seal a fresh frame (with a fresh nonce) on every
// transmission attempt.
type Sealer interface {
	Seal(sessionID string, plaintext []byte) (nonce, ciphertext []byte, err error)
	RemoteAddr(sessionID string) (string, bool)
}

// record is one outstanding (session_id, msg_id) retry entry.
type record struct {
	sessionID      string
	msgID          string
	innerPlaintext []byte
	attempts       int
	nextDeadline   time.Time
	acked          bool
	index          int // heap index, maintained by container/heap
}

// Dispatcher owns the retry queue and the single retry task draining it.
type Dispatcher struct {
	cfg    Config
	sender Sender
	sealer Sealer
	log    logger.Logger

	mu      sync.Mutex
	records map[string]*record
	pq      recordHeap

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func recordKey(sessionID, msgID string) string { return sessionID + "\x00" + msgID }

// New constructs a Dispatcher. Call Start to launch its retry task.
func New(cfg Config, sender Sender, sealer Sealer, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		sealer:  sealer,
		log:     log,
		records: make(map[string]*record),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the retry task.
func (d *Dispatcher) Start() {
	go d.run()
}

// Close stops the retry task and waits for it to exit.
func (d *Dispatcher) Close() error {
	close(d.stop)
	<-d.done
	return nil
}

// QueueDepth returns the number of outstanding retry records.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

func (d *Dispatcher) notifyWake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

var _ heap.Interface = (*recordHeap)(nil)
