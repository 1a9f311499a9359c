package memory

import (
	"context"

	"github.com/sage-x-project/chatcore/storage"
)

// NonceStore implements storage.NonceStore in memory. The guarding
// mutex on Store makes the check-then-insert race-free across workers,
// the in-memory analogue of Postgres's unique-constraint insert.
type NonceStore struct{ s *Store }

func (n *NonceStore) Insert(ctx context.Context, sessionID, nonceHex string) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	set, ok := n.s.nonces[sessionID]
	if !ok {
		set = make(map[string]struct{})
		n.s.nonces[sessionID] = set
	}
	if _, seen := set[nonceHex]; seen {
		return storage.ErrNonceReused
	}
	set[nonceHex] = struct{}{}
	return nil
}

func (n *NonceStore) DeleteForSession(ctx context.Context, sessionID string) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	delete(n.s.nonces, sessionID)
	return nil
}
