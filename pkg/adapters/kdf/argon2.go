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
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	// MinArgon2Memory is the minimum memory cost in KiB.
	MinArgon2Memory = 8 * 1024

	// MinArgon2SaltLength is the minimum salt length in bytes.
	MinArgon2SaltLength = 16
)

// ErrInvalidArgon2Params indicates the memory, time, or thread cost is invalid.
var ErrInvalidArgon2Params = errors.New("kdf: invalid argon2 parameters")

// Argon2Adapter implements the Adapter interface using Argon2id.
// Not used by the portable .veilkeys format (WebCrypto has no Argon2),
// but available to native clients protecting a local key cache.
type Argon2Adapter struct{}

// NewArgon2Adapter creates a new Argon2id adapter.
func NewArgon2Adapter() *Argon2Adapter {
	return &Argon2Adapter{}
}

// DeriveKey derives a key using Argon2id.
func (a *Argon2Adapter) DeriveKey(ikm []byte, params *Params) ([]byte, error) {
	if err := a.ValidateParams(params); err != nil {
		return nil, err
	}
	if len(ikm) == 0 {
		return nil, ErrInvalidIKM
	}

	return argon2.IDKey(ikm, params.Salt, params.Time, params.Memory, params.Threads, uint32(params.KeyLength)), nil
}

// Algorithm returns AlgorithmArgon2id.
func (a *Argon2Adapter) Algorithm() Algorithm {
	return AlgorithmArgon2id
}

// ValidateParams validates Argon2id parameters.
func (a *Argon2Adapter) ValidateParams(params *Params) error {
	if params == nil {
		return ErrInvalidKeyLength
	}
	if params.Algorithm != AlgorithmArgon2id {
		return ErrUnsupportedAlgorithm
	}
	if params.KeyLength <= 0 {
		return ErrInvalidKeyLength
	}
	if len(params.Salt) < MinArgon2SaltLength {
		return ErrInvalidSalt
	}
	if params.Memory < MinArgon2Memory || params.Time == 0 || params.Threads == 0 {
		return ErrInvalidArgon2Params
	}
	return nil
}

// DefaultArgon2Params returns recommended Argon2id parameters.
func DefaultArgon2Params() *Params {
	return &Params{
		Algorithm: AlgorithmArgon2id,
		Memory:    64 * 1024, // 64 MiB
		Time:      3,
		Threads:   4,
		KeyLength: 32,
	}
}

var _ Adapter = (*Argon2Adapter)(nil)
