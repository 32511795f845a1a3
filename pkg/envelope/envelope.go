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

// Package envelope implements the RSA-2048/AES-256-GCM hybrid encryption
// engine used for form submissions. Each payload is encrypted under a fresh
// single-use AES-256-GCM session key, and the session key is wrapped under
// the form's RSA-OAEP-2048/SHA-256 public key. RSA alone cannot carry an
// arbitrary-length submission (the OAEP plaintext bound is ~190 bytes at
// 2048 bits); the hybrid scheme fixes the asymmetric cost at one wrap while
// AES handles the payload body.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/veilforms/veilkey/pkg/encoding/jwk"
)

const (
	// PayloadVersion identifies the envelope wire format.
	PayloadVersion = "1.0"

	// sessionKeySize is the AES-256 session key length in bytes.
	sessionKeySize = 32

	// ivSize is the GCM nonce length in bytes.
	ivSize = 12
)

var (
	// ErrDecryptionFailed is the single failure returned for every decrypt
	// problem: wrong private key, corrupted ciphertext, tampered IV, or a
	// malformed payload structure. The engine deliberately does not
	// distinguish these cases so callers cannot be used as an oracle for
	// key validity.
	ErrDecryptionFailed = errors.New("envelope: decryption failed")

	// ErrEncryptionFailed is returned when a payload cannot be produced,
	// e.g. the public key is unusable or the random source fails.
	ErrEncryptionFailed = errors.New("envelope: encryption failed")
)

// EncryptedPayload is the immutable ciphertext blob stored per submission.
// All fields are standard base64. The GCM authentication tag is embedded at
// the tail of Ciphertext. The server treats the whole structure as opaque.
type EncryptedPayload struct {
	// Version is the envelope format version.
	Version string `json:"version"`

	// WrappedKey is the AES session key encrypted under the form's
	// RSA-OAEP public key. Decoded length is exactly the RSA modulus
	// size (256 bytes for 2048-bit keys).
	WrappedKey string `json:"wrappedKey"`

	// IV is the 12-byte GCM nonce, unique per payload.
	IV string `json:"iv"`

	// Ciphertext is the AES-256-GCM output, tag included.
	Ciphertext string `json:"ciphertext"`
}

// Encrypt encrypts plaintext for the holder of the private half of pub.
//
// Every invocation draws a fresh session key and IV; reuse of either across
// payloads would enable standard GCM forgery and plaintext-recovery attacks,
// so there is intentionally no API for caller-supplied key material.
func Encrypt(plaintext []byte, pub *jwk.Key) (*EncryptedPayload, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrEncryptionFailed)
	}

	rsaPub, err := pub.ToPublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	sessionKey := make([]byte, sessionKeySize)
	if _, err := rand.Read(sessionKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	defer zeroize(sessionKey)

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	aead, err := newGCM(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	ciphertext := aead.Seal(nil, iv, plaintext, nil)

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, rsaPub, sessionKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return &EncryptedPayload{
		Version:    PayloadVersion,
		WrappedKey: base64.StdEncoding.EncodeToString(wrapped),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Decrypt unwraps the session key with priv and returns the authenticated
// plaintext. The GCM tag is verified before any plaintext is released.
// Fails closed: every malformation or verification failure surfaces as the
// same ErrDecryptionFailed, and no partial plaintext is ever returned.
func Decrypt(payload *EncryptedPayload, priv *jwk.Key) ([]byte, error) {
	if payload == nil || priv == nil {
		return nil, ErrDecryptionFailed
	}

	rsaPriv, err := priv.ToPrivateKey()
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	wrapped, err := base64.StdEncoding.DecodeString(payload.WrappedKey)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	// Structural invariants: wrapped key matches the modulus exactly,
	// the IV is a 12-byte GCM nonce.
	if len(wrapped) != rsaPriv.Size() || len(iv) != ivSize {
		return nil, ErrDecryptionFailed
	}

	sessionKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, rsaPriv, wrapped, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer zeroize(sessionKey)

	if len(sessionKey) != sessionKeySize {
		return nil, ErrDecryptionFailed
	}

	aead, err := newGCM(sessionKey)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
