// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

package disclosure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// SealingKeySize is the AES-256 key length for payloads at rest.
const SealingKeySize = 32

// ErrSealFailure is returned when a stored payload cannot be sealed or
// opened. An unopenable record means the sealing key changed under an
// outstanding token; the owner's path forward is key rotation.
var ErrSealFailure = errors.New("disclosure: payload sealing failed")

// sealer encrypts token payloads at rest. The store only ever sees
// AES-GCM ciphertext; the nonce is prepended to the sealed blob.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(key []byte) (*sealer, error) {
	if len(key) != SealingKeySize {
		return nil, fmt.Errorf("%w: sealing key must be %d bytes", ErrSealFailure, SealingKeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailure, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailure, err)
	}
	return &sealer{aead: aead}, nil
}

func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailure, err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *sealer) open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrSealFailure
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealFailure
	}
	return plaintext, nil
}

// newEphemeralSealingKey mints a process-lifetime sealing key. Losing it
// on restart invalidates outstanding tokens, which only shortens the
// redemption window, never lengthens it.
func newEphemeralSealingKey() ([]byte, error) {
	key := make([]byte, SealingKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailure, err)
	}
	return key, nil
}
