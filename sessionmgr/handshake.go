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
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/chatcore/cryptoprim"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"github.com/sage-x-project/chatcore/storage"
	"github.com/sage-x-project/chatcore/wirecodec"
)

// Handshake processes a client SESSION_INIT frame (spec §4.3): it
// generates a session key, wraps and signs it for the client, persists
// the new session, and returns the server's SESSION_INIT reply frame.
func (m *Manager) Handshake(ctx context.Context, remoteAddr string, clientKeyDER []byte) ([]byte, error) {
	clientPub, err := cryptoprim.ParsePublicKeyDER(clientKeyDER)
	if err != nil {
		return nil, fmt.Errorf("sessionmgr: parse client key: %w", err)
	}

	sessionKey, err := cryptoprim.NewSessionKey()
	if err != nil {
		return nil, fmt.Errorf("sessionmgr: generate session key: %w", err)
	}
	encryptedKey, err := cryptoprim.OAEPEncrypt(clientPub, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("sessionmgr: wrap session key: %w", err)
	}
	signature, err := cryptoprim.PSSSign(m.keys.Private, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("sessionmgr: sign session key: %w", err)
	}

	sessionID := uuid.NewString()
	row := &storage.Session{SessionID: sessionID, SessionKey: sessionKey, RemoteAddr: remoteAddr}
	if err := m.repo.Sessions().Create(ctx, row); err != nil {
		return nil, fmt.Errorf("sessionmgr: persist session: %w", err)
	}

	m.mu.Lock()
	m.byID[sessionID] = &entry{
		internalID:   row.ID,
		sessionID:    sessionID,
		sessionKey:   sessionKey,
		remoteAddr:   remoteAddr,
		state:        StateHandshaken,
		lastActiveAt: time.Now(),
	}
	m.setGauges()
	m.mu.Unlock()

	frame, err := wirecodec.EncodeServerHello(sessionID, encryptedKey, signature, m.serverDER, m.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("sessionmgr: encode server hello: %w", err)
	}
	metrics.FramesSent.WithLabelValues("handshake").Inc()
	return frame, nil
}
