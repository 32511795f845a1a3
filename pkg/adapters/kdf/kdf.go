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

// Package kdf provides key derivation adapters for password-protected key
// material. The .veilkeys export format pins PBKDF2-HMAC-SHA256; Argon2id is
// available for callers deriving keys that never leave the local device.
package kdf

import (
	"crypto"
	"errors"
)

// Algorithm identifies a key derivation function.
type Algorithm string

const (
	// AlgorithmPBKDF2 is PBKDF2 (RFC 2898). Used by the portable export
	// format for maximum cross-platform compatibility (WebCrypto ships it).
	AlgorithmPBKDF2 Algorithm = "PBKDF2"

	// AlgorithmArgon2id is the hybrid Argon2 variant.
	AlgorithmArgon2id Algorithm = "Argon2id"
)

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// Params contains key derivation parameters.
type Params struct {
	// Algorithm selects the KDF.
	Algorithm Algorithm

	// Salt is the per-derivation random salt. Never reused.
	Salt []byte

	// Iterations is the PBKDF2 iteration count.
	Iterations int

	// Memory is the Argon2 memory cost in KiB.
	Memory uint32

	// Threads is the Argon2 parallelism degree.
	Threads uint8

	// Time is the Argon2 time cost.
	Time uint32

	// KeyLength is the derived key length in bytes.
	KeyLength int

	// Hash is the PRF hash (PBKDF2 only).
	Hash crypto.Hash
}

// Adapter derives symmetric keys from low-entropy secrets.
type Adapter interface {
	// DeriveKey derives a key from the input key material.
	// The caller owns the returned buffer and is responsible for
	// zeroizing it when no longer needed.
	DeriveKey(ikm []byte, params *Params) ([]byte, error)

	// Algorithm returns the KDF this adapter implements.
	Algorithm() Algorithm

	// ValidateParams rejects parameters below the package minimums.
	ValidateParams(params *Params) error
}

// Common errors
var (
	// ErrInvalidSalt indicates the salt is nil, empty, or too short.
	ErrInvalidSalt = errors.New("kdf: invalid salt")

	// ErrInvalidKeyLength indicates the requested key length is invalid.
	ErrInvalidKeyLength = errors.New("kdf: invalid key length")

	// ErrInvalidIterations indicates the iteration count is below the minimum.
	ErrInvalidIterations = errors.New("kdf: invalid iterations")

	// ErrInvalidHash indicates the hash function is unavailable.
	ErrInvalidHash = errors.New("kdf: invalid or unsupported hash function")

	// ErrInvalidIKM indicates empty input key material.
	ErrInvalidIKM = errors.New("kdf: invalid input key material")

	// ErrUnsupportedAlgorithm indicates a params/adapter algorithm mismatch.
	ErrUnsupportedAlgorithm = errors.New("kdf: unsupported algorithm")
)
