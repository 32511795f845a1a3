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

package kdf

import (
	"crypto"
	_ "crypto/sha256" // Link in SHA256 for DefaultPBKDF2Params
	_ "crypto/sha512" // Link in SHA512

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinPBKDF2Iterations is the floor the adapter enforces. The export
	// format uses exactly this count: high enough to make offline brute
	// force of a weak password expensive over the export file's multi-year
	// retention, low enough to derive in well under a second on commodity
	// hardware.
	MinPBKDF2Iterations = 100000

	// MinPBKDF2SaltLength is the minimum salt length in bytes.
	MinPBKDF2SaltLength = 16
)

// PBKDF2Adapter implements the Adapter interface using PBKDF2 (RFC 2898).
type PBKDF2Adapter struct{}

// NewPBKDF2Adapter creates a new PBKDF2 adapter.
func NewPBKDF2Adapter() *PBKDF2Adapter {
	return &PBKDF2Adapter{}
}

// DeriveKey derives a key using PBKDF2.
func (p *PBKDF2Adapter) DeriveKey(ikm []byte, params *Params) ([]byte, error) {
	if err := p.ValidateParams(params); err != nil {
		return nil, err
	}
	if len(ikm) == 0 {
		return nil, ErrInvalidIKM
	}

	return pbkdf2.Key(ikm, params.Salt, params.Iterations, params.KeyLength, params.Hash.New), nil
}

// Algorithm returns AlgorithmPBKDF2.
func (p *PBKDF2Adapter) Algorithm() Algorithm {
	return AlgorithmPBKDF2
}

// ValidateParams validates PBKDF2 parameters.
func (p *PBKDF2Adapter) ValidateParams(params *Params) error {
	if params == nil {
		return ErrInvalidKeyLength
	}
	if params.Algorithm != AlgorithmPBKDF2 {
		return ErrUnsupportedAlgorithm
	}
	if params.KeyLength <= 0 {
		return ErrInvalidKeyLength
	}
	if len(params.Salt) < MinPBKDF2SaltLength {
		return ErrInvalidSalt
	}
	if params.Iterations < MinPBKDF2Iterations {
		return ErrInvalidIterations
	}
	if params.Hash == 0 || !params.Hash.Available() {
		return ErrInvalidHash
	}
	return nil
}

// DefaultPBKDF2Params returns the parameters used by the export format.
func DefaultPBKDF2Params() *Params {
	return &Params{
		Algorithm:  AlgorithmPBKDF2,
		Iterations: MinPBKDF2Iterations,
		KeyLength:  32,
		Hash:       crypto.SHA256,
	}
}

var _ Adapter = (*PBKDF2Adapter)(nil)
