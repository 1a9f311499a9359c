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
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ClientHello is the client→server SESSION_INIT frame (spec §4.2/§6).
type ClientHello struct {
	Type      string `json:"type"`
	ClientKey string `json:"client_key"` // base64 DER SubjectPublicKeyInfo
}

// ServerHello is the server→client SESSION_INIT reply.
type ServerHello struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id"`
	EncryptedKey string `json:"encrypted_key"` // hex RSA-OAEP ciphertext
	Signature    string `json:"signature"`     // hex RSA-PSS signature
	ServerPubKey string `json:"server_pubkey"` // hex DER SubjectPublicKeyInfo
	Fingerprint  string `json:"fingerprint"`   // hex SHA-256
}

// ParseClientHello decodes a client SESSION_INIT frame and returns the
// client's DER-encoded SubjectPublicKeyInfo.
func ParseClientHello(raw []byte) (clientKeyDER []byte, err error) {
	var h ClientHello
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("wirecodec: parse client hello: %w", err)
	}
	if h.Type != TypeSessionInit {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, h.Type)
	}
	der, err := base64.StdEncoding.DecodeString(h.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("wirecodec: decode client_key: %w", err)
	}
	return der, nil
}

// EncodeClientHello serializes a client SESSION_INIT frame from a
// DER-encoded public key.
func EncodeClientHello(clientKeyDER []byte) ([]byte, error) {
	h := ClientHello{
		Type:      TypeSessionInit,
		ClientKey: base64.StdEncoding.EncodeToString(clientKeyDER),
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("wirecodec: encode client hello: %w", err)
	}
	return raw, checkSize(raw)
}

// EncodeServerHello serializes the server's SESSION_INIT reply from
// its component byte slices, hex-encoding each at the wire boundary.
func EncodeServerHello(sessionID string, encryptedKey, signature, serverPubKeyDER []byte, fingerprint string) ([]byte, error) {
	h := ServerHello{
		Type:         TypeSessionInit,
		SessionID:    sessionID,
		EncryptedKey: hex.EncodeToString(encryptedKey),
		Signature:    hex.EncodeToString(signature),
		ServerPubKey: hex.EncodeToString(serverPubKeyDER),
		Fingerprint:  fingerprint,
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("wirecodec: encode server hello: %w", err)
	}
	return raw, checkSize(raw)
}

// ParseServerHello decodes a server SESSION_INIT reply, hex-decoding
// its component fields. Used by test clients and by the reference
// handshake-verification property in spec §8.
func ParseServerHello(raw []byte) (hello *ServerHello, encryptedKey, signature, serverPubKeyDER []byte, err error) {
	var h ServerHello
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("wirecodec: parse server hello: %w", err)
	}
	if h.Type != TypeSessionInit {
		return nil, nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, h.Type)
	}
	ek, err := hex.DecodeString(h.EncryptedKey)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("wirecodec: decode encrypted_key: %w", err)
	}
	sig, err := hex.DecodeString(h.Signature)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("wirecodec: decode signature: %w", err)
	}
	pub, err := hex.DecodeString(h.ServerPubKey)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("wirecodec: decode server_pubkey: %w", err)
	}
	return &h, ek, sig, pub, nil
}
