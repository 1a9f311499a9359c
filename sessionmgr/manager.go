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

// Package sessionmgr implements the handshake-and-session state
// machine of spec §4.3: the ⟂ → HANDSHAKEN → ACTIVE lifecycle, the
// in-memory session index, frame admission, idle expiry, and session
// merge.
package sessionmgr

import (
	"sync"
	"time"

	"github.com/sage-x-project/chatcore/cryptoprim"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"github.com/sage-x-project/chatcore/storage"
)

// State is a session's position in the handshake lifecycle.
type State int

const (
	// StateHandshaken marks a session that has completed SESSION_INIT
	// but not yet had a SECURE_MSG admitted.
	StateHandshaken State = iota
	// StateActive marks a session that has had at least one SECURE_MSG admitted.
	StateActive
)

// entry is the in-memory index record backing a live session. Readers
// take the Manager's RWMutex; entry itself holds no lock.
type entry struct {
	internalID   int64
	sessionID    string
	userID       *int64
	sessionKey   []byte
	remoteAddr   string
	state        State
	lastActiveAt time.Time
}

// Manager owns the session index and the server's RSA identity.
type Manager struct {
	repo        storage.Repository
	keys        *cryptoprim.KeyPair
	serverDER   []byte
	fingerprint string
	idleTimeout time.Duration
	log         logger.Logger

	mu        sync.RWMutex
	byID      map[string]*entry

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

// NewManager constructs a Manager over repo, identified by keys, with
// sessions purged after idleTimeout of inactivity.
func NewManager(repo storage.Repository, keys *cryptoprim.KeyPair, idleTimeout time.Duration, log logger.Logger) (*Manager, error) {
	der, err := cryptoprim.PublicKeyDER(keys.Public)
	if err != nil {
		return nil, err
	}
	return &Manager{
		repo:        repo,
		keys:        keys,
		serverDER:   der,
		fingerprint: cryptoprim.Fingerprint(der),
		idleTimeout: idleTimeout,
		log:         log,
		byID:        make(map[string]*entry),
		stopCleanup: make(chan struct{}),
	}, nil
}

// Fingerprint returns the server's public-key fingerprint, for health
// and diagnostics surfaces.
func (m *Manager) Fingerprint() string { return m.fingerprint }

// Start launches the idle-expiry sweeper. Call once after construction.
func (m *Manager) Start() {
	m.cleanupTicker = time.NewTicker(30 * time.Second)
	go m.runCleanup()
}

// Close stops the sweeper. The in-memory index is discarded; the
// database session rows are left for the next process to reload or expire.
func (m *Manager) Close() error {
	close(m.stopCleanup)
	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
	}
	return nil
}

func (m *Manager) setGauges() {
	var authenticated int
	for _, e := range m.byID {
		if e.userID != nil {
			authenticated++
		}
	}
	metrics.SessionsActive.Set(float64(len(m.byID)))
	metrics.SessionsAuthenticated.Set(float64(authenticated))
}

// UserID returns the user currently bound to sessionID, if any.
func (m *Manager) UserID(sessionID string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[sessionID]
	if !ok || e.userID == nil {
		return 0, false
	}
	return *e.userID, true
}

// SessionsForUser returns every live session_id currently bound to userID.
func (m *Manager) SessionsForUser(userID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, e := range m.byID {
		if e.userID != nil && *e.userID == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

// SessionCount returns the number of live sessions, for health and diagnostics surfaces.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// AnySessionForAddr returns a live session bound to remoteAddr other
// than excludeID, used to decide whether a NO_SESSION reply is owed
// (spec §4.3 admission step 1).
func (m *Manager) AnySessionForAddr(remoteAddr, excludeID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, e := range m.byID {
		if id != excludeID && e.remoteAddr == remoteAddr {
			return id, true
		}
	}
	return "", false
}
