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

package export

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/veilforms/veilkey/pkg/keypair"
)

var (
	exportKeysOnce sync.Once
	exportKeys     map[string]*keypair.KeyPair
)

func testExportKeys(t *testing.T) map[string]*keypair.KeyPair {
	t.Helper()
	exportKeysOnce.Do(func() {
		exportKeys = make(map[string]*keypair.KeyPair, 2)
		for _, formID := range []string{"form-contact", "form-survey"} {
			kp, err := keypair.Generate()
			if err != nil {
				panic(err)
			}
			kp.Version = 1
			exportKeys[formID] = kp
		}
	})
	return exportKeys
}

func TestExportImport_RoundTrip(t *testing.T) {
	keys := testExportKeys(t)
	password := NewPasswordFromString("strong export passphrase")

	env, err := Keys(keys, password)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}

	if env.Version != EnvelopeVersion {
		t.Errorf("Version = %q, want %q", env.Version, EnvelopeVersion)
	}
	if env.Algorithm != EnvelopeAlgorithm {
		t.Errorf("Algorithm = %q, want %q", env.Algorithm, EnvelopeAlgorithm)
	}
	if env.Iterations < 100000 {
		t.Errorf("Iterations = %d, want >= 100000", env.Iterations)
	}
	if len(env.Salt) != 16 {
		t.Errorf("salt = %d bytes, want 16", len(env.Salt))
	}
	if len(env.IV) != 12 {
		t.Errorf("IV = %d bytes, want 12", len(env.IV))
	}

	restored, err := Import(env, NewPasswordFromString("strong export passphrase"))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(restored) != len(keys) {
		t.Fatalf("Import() returned %d keys, want %d", len(restored), len(keys))
	}
	for formID, kp := range keys {
		got, ok := restored[formID]
		if !ok {
			t.Fatalf("Import() missing form %q", formID)
		}
		if got.PrivateKey.Kid != kp.PrivateKey.Kid || got.PrivateKey.D != kp.PrivateKey.D {
			t.Errorf("form %q: restored private key differs", formID)
		}
		if got.Version != kp.Version {
			t.Errorf("form %q: version = %d, want %d", formID, got.Version, kp.Version)
		}
	}
}

func TestExport_FreshSaltAndIV(t *testing.T) {
	keys := testExportKeys(t)
	password := NewPasswordFromString("same password twice")

	first, err := Keys(keys, password)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	second, err := Keys(keys, password)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}

	if bytes.Equal(first.Salt, second.Salt) {
		t.Error("salt reused across exports")
	}
	if bytes.Equal(first.IV, second.IV) {
		t.Error("IV reused across exports")
	}
	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Error("identical ciphertext for independent exports")
	}
}

func TestImport_WrongPassword(t *testing.T) {
	keys := testExportKeys(t)

	env, err := Keys(keys, NewPasswordFromString("right password"))
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}

	got, err := Import(env, NewPasswordFromString("wrong password"))
	if !errors.Is(err, ErrImportFailed) {
		t.Errorf("Import() error = %v, want ErrImportFailed", err)
	}
	if got != nil {
		t.Error("Import() returned keys on wrong password")
	}
}

func TestImport_Tampered(t *testing.T) {
	keys := testExportKeys(t)
	password := NewPasswordFromString("passphrase")

	tests := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{"ciphertext flipped", func(e *Envelope) { e.Ciphertext[0] ^= 0x01 }},
		{"tag flipped", func(e *Envelope) { e.Ciphertext[len(e.Ciphertext)-1] ^= 0x01 }},
		{"salt flipped", func(e *Envelope) { e.Salt[0] ^= 0x01 }},
		{"iv flipped", func(e *Envelope) { e.IV[0] ^= 0x01 }},
		{"iv wrong length", func(e *Envelope) { e.IV = e.IV[:8] }},
		{"unsupported version", func(e *Envelope) { e.Version = "2.0" }},
		{"unsupported algorithm", func(e *Envelope) { e.Algorithm = "scrypt" }},
		{"iterations zeroed", func(e *Envelope) { e.Iterations = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Keys(keys, password)
			if err != nil {
				t.Fatalf("Keys() error = %v", err)
			}
			tt.mutate(env)

			if _, err := Import(env, NewPasswordFromString("passphrase")); !errors.Is(err, ErrImportFailed) {
				t.Errorf("Import() error = %v, want ErrImportFailed", err)
			}
		})
	}
}

func TestExport_InvalidInputs(t *testing.T) {
	keys := testExportKeys(t)

	if _, err := Keys(nil, NewPasswordFromString("pw")); !errors.Is(err, ErrNoKeys) {
		t.Errorf("Keys(nil) error = %v, want ErrNoKeys", err)
	}
	if _, err := Keys(keys, nil); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Keys() with nil password error = %v, want ErrEmptyPassword", err)
	}
	if _, err := Keys(keys, NewPasswordFromString("")); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Keys() with empty password error = %v, want ErrEmptyPassword", err)
	}
}

func TestEnvelope_MarshalRoundTrip(t *testing.T) {
	keys := testExportKeys(t)
	password := NewPasswordFromString("passphrase")

	env, err := Keys(keys, password)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	parsed, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	restored, err := Import(parsed, NewPasswordFromString("passphrase"))
	if err != nil {
		t.Fatalf("Import() after marshal round trip error = %v", err)
	}
	if len(restored) != len(keys) {
		t.Errorf("round trip lost keys: got %d, want %d", len(restored), len(keys))
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	if _, err := Unmarshal([]byte(`{not json`)); !errors.Is(err, ErrImportFailed) {
		t.Errorf("Unmarshal() error = %v, want ErrImportFailed", err)
	}
}

func TestPassword_Zeroize(t *testing.T) {
	secret := []byte("sensitive")
	password := NewPassword(secret)

	// Construction copies; mutating the source must not affect the password.
	secret[0] = 'X'
	if password.Bytes()[0] != 's' {
		t.Error("NewPassword did not copy the input")
	}

	password.Zeroize()
	if password.Len() != 0 {
		t.Errorf("Len() after Zeroize = %d, want 0", password.Len())
	}
}
