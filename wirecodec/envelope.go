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

package wirecodec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SecureEnvelope wraps an AEAD-encrypted inner payload (spec §4.2/§6).
type SecureEnvelope struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	Nonce      string `json:"nonce"`      // hex, 12 bytes
	Ciphertext string `json:"ciphertext"` // hex, plaintext‖16-byte tag
}

// ParseSecureEnvelope decodes a SECURE_MSG frame and hex-decodes its
// nonce and ciphertext.
func ParseSecureEnvelope(raw []byte) (sessionID string, nonce, ciphertext []byte, err error) {
	var e SecureEnvelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", nil, nil, fmt.Errorf("wirecodec: parse secure envelope: %w", err)
	}
	if e.Type != TypeSecureMsg {
		return "", nil, nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, e.Type)
	}
	n, err := hex.DecodeString(e.Nonce)
	if err != nil {
		return "", nil, nil, fmt.Errorf("wirecodec: decode nonce: %w", err)
	}
	ct, err := hex.DecodeString(e.Ciphertext)
	if err != nil {
		return "", nil, nil, fmt.Errorf("wirecodec: decode ciphertext: %w", err)
	}
	return e.SessionID, n, ct, nil
}

// EncodeSecureEnvelope serializes a SECURE_MSG frame, hex-encoding the
// nonce and ciphertext at the wire boundary, and enforces MaxFrameSize.
func EncodeSecureEnvelope(sessionID string, nonce, ciphertext []byte) ([]byte, error) {
	e := SecureEnvelope{
		Type:       TypeSecureMsg,
		SessionID:  sessionID,
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ciphertext),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("wirecodec: encode secure envelope: %w", err)
	}
	return raw, checkSize(raw)
}

// InnerPayload is the JSON object carried as AEAD plaintext: the
// routed operation (spec §4.5), its data, and an optional msg_id used
// by the reliable dispatcher (spec §4.4).
type InnerPayload struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	MsgID string          `json:"msg_id,omitempty"`
}

// ParseInnerPayload decodes the AEAD plaintext into an InnerPayload.
func ParseInnerPayload(plaintext []byte) (*InnerPayload, error) {
	var p InnerPayload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, fmt.Errorf("wirecodec: parse inner payload: %w", err)
	}
	if p.Type == "" {
		return nil, ErrUnknownFrameType
	}
	return &p, nil
}

// EncodeInnerPayload marshals data (any JSON-serializable value, often
// nil) into an InnerPayload plaintext ready for AEAD sealing.
func EncodeInnerPayload(kind string, data any, msgID string) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("wirecodec: encode inner data: %w", err)
		}
		raw = encoded
	}
	p := InnerPayload{Type: kind, Data: raw, MsgID: msgID}
	out, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("wirecodec: encode inner payload: %w", err)
	}
	return out, nil
}
