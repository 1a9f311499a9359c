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

// Package chaterr defines the error taxonomy shared by the session
// manager, router, and chat state machine (spec §7): a small set of
// kinds that decide how a failure is reported to the peer, independent
// of which package raised it.
package chaterr

import "errors"

// Kind classifies an error for the purpose of deciding a reply.
type Kind int

const (
	// KindCrypto is a decrypt/verify failure. Never replied to, to
	// avoid creating a decryption oracle.
	KindCrypto Kind = iota
	// KindReplay is a duplicate (session_id, nonce) pair. Never replied to.
	KindReplay
	// KindProtocol is malformed JSON or an unknown field. Replied with
	// an encrypted ERROR if a session exists, dropped otherwise.
	KindProtocol
	// KindAuth is a missing user/member precondition. Replied with
	// UNAUTHORISED or PLEASE_LOGIN.
	KindAuth
	// KindConflict is a unique-constraint violation. Replied with ERROR.
	KindConflict
	// KindNotFound is a missing referenced entity. Replied with ERROR.
	KindNotFound
	// KindTransient is a retryable repository failure.
	KindTransient
	// KindFatal is an unrecoverable startup condition.
	KindFatal
)

// Error wraps an underlying error with a Kind that callers use to pick
// a reply strategy without type-switching on concrete error types.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified Error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to KindTransient for an
// unclassified error — the router's residual case per spec §7.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}
