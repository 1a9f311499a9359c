package storage

import "errors"

// Sentinel errors returned by repository implementations. Handlers
// (router/chat) translate these into the error taxonomy of spec §7
// (ConflictError, NotFoundError).
var (
	ErrNotFound      = errors.New("storage: not found")
	ErrConflict      = errors.New("storage: conflict")
	ErrNonceReused   = errors.New("storage: nonce already accepted")
	ErrSessionExists = errors.New("storage: session key already in use")
)
