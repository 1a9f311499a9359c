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

// Package wirecodec parses and serializes the two UDP frame shapes:
// the handshake SESSION_INIT exchange and the SECURE_MSG envelope
// wrapping an AEAD-encrypted inner payload.
package wirecodec

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxFrameSize is the hard cap on a single outbound UDP frame (spec §4.2/§6).
const MaxFrameSize = 60 * 1024

// Frame type discriminators, the outer `type` field.
const (
	TypeSessionInit = "SESSION_INIT"
	TypeSecureMsg   = "SECURE_MSG"
)

var (
	// ErrFrameTooLarge is returned when an outbound frame would exceed MaxFrameSize.
	ErrFrameTooLarge = errors.New("wirecodec: frame exceeds size cap")
	// ErrUnknownFrameType is returned when a frame's `type` field is
	// missing (PeekType, ParseInnerPayload) or is not the type a parser
	// expects (ParseClientHello, ParseServerHello, ParseSecureEnvelope).
	ErrUnknownFrameType = errors.New("wirecodec: unrecognized frame type")
)

// peekType is the minimal shape shared by both frame kinds, used to
// dispatch a raw datagram to the right decoder without parsing it twice.
type peekType struct {
	Type string `json:"type"`
}

// PeekType returns the outer `type` discriminator of a raw datagram
// without fully decoding it.
func PeekType(raw []byte) (string, error) {
	var p peekType
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", fmt.Errorf("wirecodec: peek frame type: %w", err)
	}
	if p.Type == "" {
		return "", ErrUnknownFrameType
	}
	return p.Type, nil
}

// checkSize enforces the outbound frame cap before a write to the socket.
func checkSize(raw []byte) error {
	if len(raw) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(raw))
	}
	return nil
}
