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

package sessionmgr

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sage-x-project/chatcore/chaterr"
	"github.com/sage-x-project/chatcore/cryptoprim"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"github.com/sage-x-project/chatcore/storage"
	"github.com/sage-x-project/chatcore/wirecodec"
)

// NoSessionError is returned by Admit when session_id names no live
// session. AltSessionID is set when another live session exists for
// the same remote address, the condition under which spec §4.3
// permits an unsolicited cleartext NO_SESSION reply.
type NoSessionError struct {
	AltSessionID string
}

func (e *NoSessionError) Error() string { return "sessionmgr: no session for session_id" }

// Admitted is the result of successfully admitting a SECURE_MSG frame:
// the decrypted inner payload plus the session context it arrived on.
type Admitted struct {
	SessionID  string
	InternalID int64
	UserID     *int64
	Inner      *wirecodec.InnerPayload
}

// Admit runs the six-step admission sequence of spec §4.3 on a raw
// SECURE_MSG datagram: session lookup, nonce insert, AEAD open, inner
// JSON parse, activity refresh, and hand-off.
func (m *Manager) Admit(ctx context.Context, raw []byte, remoteAddr string) (*Admitted, error) {
	sessionID, nonce, ciphertext, err := wirecodec.ParseSecureEnvelope(raw)
	if err != nil {
		return nil, chaterr.New(chaterr.KindProtocol, "malformed secure envelope", err)
	}

	m.mu.RLock()
	e, ok := m.byID[sessionID]
	m.mu.RUnlock()
	if !ok {
		metrics.FramesDropped.WithLabelValues("no_session").Inc()
		alt, hasAlt := m.AnySessionForAddr(remoteAddr, sessionID)
		if hasAlt {
			return nil, &NoSessionError{AltSessionID: alt}
		}
		return nil, &NoSessionError{}
	}

	nonceErr := chaterr.Retry(ctx, func(err error) bool { return !errors.Is(err, storage.ErrNonceReused) }, func() error {
		return m.repo.Nonces().Insert(ctx, sessionID, hex.EncodeToString(nonce))
	})
	if nonceErr != nil {
		if errors.Is(nonceErr, storage.ErrNonceReused) {
			metrics.ReplayRejections.Inc()
			return nil, chaterr.New(chaterr.KindReplay, "nonce already accepted", nonceErr)
		}
		return nil, chaterr.New(chaterr.KindTransient, "nonce insert failed", nonceErr)
	}

	plaintext, err := cryptoprim.Open(e.sessionKey, nonce, ciphertext)
	if err != nil {
		metrics.DecryptFailures.Inc()
		return nil, chaterr.New(chaterr.KindCrypto, "aead open failed", err)
	}

	inner, err := wirecodec.ParseInnerPayload(plaintext)
	if err != nil {
		return nil, chaterr.New(chaterr.KindProtocol, "malformed inner payload", err)
	}

	now := time.Now()
	m.mu.Lock()
	e.lastActiveAt = now
	e.remoteAddr = remoteAddr
	e.state = StateActive
	userID := e.userID
	internalID := e.internalID
	m.mu.Unlock()

	activityErr := chaterr.Retry(ctx, chaterr.Always, func() error {
		return m.repo.Sessions().UpdateActivity(ctx, sessionID, remoteAddr, now)
	})
	if activityErr != nil {
		return nil, chaterr.New(chaterr.KindTransient, "update activity failed", activityErr)
	}

	return &Admitted{SessionID: sessionID, InternalID: internalID, UserID: userID, Inner: inner}, nil
}

// Seal encrypts an inner payload for sessionID using a freshly
// constructed outbound nonce (spec §4.2), for use by the reliable
// dispatcher when transmitting.
func (m *Manager) Seal(sessionID string, plaintext []byte) (nonce, ciphertext []byte, err error) {
	m.mu.RLock()
	e, ok := m.byID[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("sessionmgr: seal: unknown session %s", sessionID)
	}
	n, err := cryptoprim.NewOutboundNonce(time.Now().UnixNano())
	if err != nil {
		return nil, nil, err
	}
	ct, err := cryptoprim.Seal(e.sessionKey, n, plaintext)
	if err != nil {
		return nil, nil, err
	}
	return n, ct, nil
}

// RemoteAddr returns the last-known remote address for a session.
func (m *Manager) RemoteAddr(sessionID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[sessionID]
	if !ok {
		return "", false
	}
	return e.remoteAddr, true
}
