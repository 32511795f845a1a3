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

// Package export implements the password-protected .veilkeys backup format.
// An export bundles the key pairs of one or more forms under a single
// password: the serialized key mapping is sealed with AES-256-GCM under a
// PBKDF2-derived key. The file is the owner's only recovery path besides the
// device-local copy; there is no server-side escrow by design, so a lost
// password plus a lost device is permanent data loss.
package export

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/veilforms/veilkey/pkg/adapters/kdf"
	"github.com/veilforms/veilkey/pkg/keypair"
)

const (
	// EnvelopeVersion identifies the .veilkeys file format version.
	EnvelopeVersion = "1.0"

	// EnvelopeAlgorithm names the derivation and sealing scheme.
	EnvelopeAlgorithm = "PBKDF2-AES-GCM-256"

	// saltSize is the PBKDF2 salt length in bytes.
	saltSize = 16

	// ivSize is the GCM nonce length in bytes.
	ivSize = 12
)

var (
	// ErrImportFailed is the single failure for every import problem:
	// wrong password, corrupted envelope, or unsupported format. The GCM
	// tag check is the sole correctness oracle and a wrong password is
	// indistinguishable from tampering. No partial decryption is ever
	// returned.
	ErrImportFailed = errors.New("export: import failed")

	// ErrExportFailed is returned when an envelope cannot be produced.
	ErrExportFailed = errors.New("export: export failed")

	// ErrEmptyPassword is returned when the export password is empty.
	ErrEmptyPassword = errors.New("export: empty password")

	// ErrNoKeys is returned when there is nothing to export.
	ErrNoKeys = errors.New("export: no keys to export")
)

// Envelope is the on-disk .veilkeys document. Salt and IV are freshly
// random for every export, even for the same password; a reused IV under a
// fixed derived key would break GCM confidentiality and authenticity
// outright. Byte fields serialize as base64 in JSON.
type Envelope struct {
	Version    string `json:"version"`
	Algorithm  string `json:"algorithm"`
	Iterations int    `json:"iterations"`
	Salt       []byte `json:"salt"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

// Keys seals the given formID -> key pair mapping under password.
// The password-derived key exists only for the duration of the call and is
// zeroized before return on every path.
func Keys(keys map[string]*keypair.KeyPair, password *Password) (*Envelope, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	if password == nil || password.Len() == 0 {
		return nil, ErrEmptyPassword
	}

	plaintext, err := json.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	params := kdf.DefaultPBKDF2Params()
	params.Salt = salt

	aead, wipe, err := sealingAEAD(password, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	defer wipe()

	return &Envelope{
		Version:    EnvelopeVersion,
		Algorithm:  EnvelopeAlgorithm,
		Iterations: params.Iterations,
		Salt:       salt,
		IV:         iv,
		Ciphertext: aead.Seal(nil, iv, plaintext, nil),
	}, nil
}

// Import re-derives the key from password and the envelope's stored salt
// and iteration count, then opens the ciphertext. All failures surface as
// ErrImportFailed.
func Import(env *Envelope, password *Password) (map[string]*keypair.KeyPair, error) {
	if env == nil || password == nil || password.Len() == 0 {
		return nil, ErrImportFailed
	}
	if env.Version != EnvelopeVersion || env.Algorithm != EnvelopeAlgorithm {
		return nil, ErrImportFailed
	}
	if len(env.IV) != ivSize {
		return nil, ErrImportFailed
	}

	params := kdf.DefaultPBKDF2Params()
	params.Salt = env.Salt
	params.Iterations = env.Iterations

	aead, wipe, err := sealingAEAD(password, params)
	if err != nil {
		return nil, ErrImportFailed
	}
	defer wipe()

	plaintext, err := aead.Open(nil, env.IV, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrImportFailed
	}

	var keys map[string]*keypair.KeyPair
	if err := json.Unmarshal(plaintext, &keys); err != nil {
		return nil, ErrImportFailed
	}

	return keys, nil
}

// Marshal returns the JSON encoding of the envelope, suitable for writing
// to a .veilkeys file.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// Unmarshal parses a .veilkeys document.
func Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrImportFailed
	}
	return &env, nil
}

// sealingAEAD derives the envelope key and returns a GCM instance plus a
// wipe function that zeroizes the derived key material.
func sealingAEAD(password *Password, params *kdf.Params) (cipher.AEAD, func(), error) {
	pw := password.Bytes()
	defer wipeBytes(pw)

	key, err := kdf.NewPBKDF2Adapter().DeriveKey(pw, params)
	if err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		wipeBytes(key)
		return nil, nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		wipeBytes(key)
		return nil, nil, err
	}

	return aead, func() { wipeBytes(key) }, nil
}

func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
