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

package envelope

import (
	"bytes"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veilforms/veilkey/pkg/keypair"
)

var (
	testPairOnce sync.Once
	testPair     *keypair.KeyPair
	otherPair    *keypair.KeyPair
)

func testKeys(t *testing.T) (*keypair.KeyPair, *keypair.KeyPair) {
	t.Helper()
	testPairOnce.Do(func() {
		var err error
		testPair, err = keypair.Generate()
		if err != nil {
			panic(err)
		}
		otherPair, err = keypair.Generate()
		if err != nil {
			panic(err)
		}
	})
	return testPair, otherPair
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	kp, _ := testKeys(t)
	plaintext := []byte(`{"name":"Ada Lovelace","email":"ada@example.com"}`)

	payload, err := Encrypt(plaintext, kp.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, PayloadVersion, payload.Version)
	wrapped, err := base64.StdEncoding.DecodeString(payload.WrappedKey)
	require.NoError(t, err, "WrappedKey must be valid base64")
	assert.Len(t, wrapped, 256)
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	require.NoError(t, err, "IV must be valid base64")
	assert.Len(t, iv, 12)

	got, err := Decrypt(payload, kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncrypt_EmptyPlaintext(t *testing.T) {
	kp, _ := testKeys(t)

	payload, err := Encrypt(nil, kp.PublicKey)
	require.NoError(t, err)
	got, err := Decrypt(payload, kp.PrivateKey)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestEncrypt_FreshMaterialPerPayload checks that two encryptions of the
// same plaintext under the same key share nothing: session key, IV and
// ciphertext must all be freshly drawn.
func TestEncrypt_FreshMaterialPerPayload(t *testing.T) {
	kp, _ := testKeys(t)
	plaintext := []byte("the same submission twice")

	first, err := Encrypt(plaintext, kp.PublicKey)
	require.NoError(t, err)
	second, err := Encrypt(plaintext, kp.PublicKey)
	require.NoError(t, err)

	assert.NotEqual(t, first.WrappedKey, second.WrappedKey, "wrapped key reused across payloads")
	assert.NotEqual(t, first.IV, second.IV, "IV reused across payloads")
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext, "identical ciphertext for independent encryptions")
}

func TestDecrypt_WrongKey(t *testing.T) {
	kp, other := testKeys(t)

	payload, err := Encrypt([]byte("secret"), kp.PublicKey)
	require.NoError(t, err)

	_, err = Decrypt(payload, other.PrivateKey)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecrypt_PublicKeyOnly(t *testing.T) {
	kp, _ := testKeys(t)

	payload, err := Encrypt([]byte("secret"), kp.PublicKey)
	require.NoError(t, err)

	_, err = Decrypt(payload, kp.PublicKey)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

// flipByte corrupts one byte of a base64 field and re-encodes it.
func flipByte(t *testing.T, encoded string, offset int) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	raw[offset%len(raw)] ^= 0x01
	return base64.StdEncoding.EncodeToString(raw)
}

// TestDecrypt_Tampered verifies that single-byte corruption of any field
// surfaces as the one opaque decryption error.
func TestDecrypt_Tampered(t *testing.T) {
	kp, _ := testKeys(t)

	tests := []struct {
		name   string
		mutate func(t *testing.T, p *EncryptedPayload)
	}{
		{"ciphertext body", func(t *testing.T, p *EncryptedPayload) {
			p.Ciphertext = flipByte(t, p.Ciphertext, 0)
		}},
		{"ciphertext tag", func(t *testing.T, p *EncryptedPayload) {
			p.Ciphertext = flipByte(t, p.Ciphertext, len(p.Ciphertext)-1)
		}},
		{"iv", func(t *testing.T, p *EncryptedPayload) {
			p.IV = flipByte(t, p.IV, 3)
		}},
		{"wrapped key", func(t *testing.T, p *EncryptedPayload) {
			p.WrappedKey = flipByte(t, p.WrappedKey, 17)
		}},
		{"wrapped key truncated", func(t *testing.T, p *EncryptedPayload) {
			raw, _ := base64.StdEncoding.DecodeString(p.WrappedKey)
			p.WrappedKey = base64.StdEncoding.EncodeToString(raw[:len(raw)-1])
		}},
		{"iv wrong length", func(t *testing.T, p *EncryptedPayload) {
			p.IV = base64.StdEncoding.EncodeToString(make([]byte, 16))
		}},
		{"ciphertext invalid base64", func(t *testing.T, p *EncryptedPayload) {
			p.Ciphertext = "%%%not-base64%%%"
		}},
		{"wrapped key invalid base64", func(t *testing.T, p *EncryptedPayload) {
			p.WrappedKey = "%%%not-base64%%%"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Encrypt([]byte("submission body"), kp.PublicKey)
			require.NoError(t, err)
			tt.mutate(t, payload)

			got, err := Decrypt(payload, kp.PrivateKey)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
			assert.Nil(t, got, "Decrypt() released plaintext on failure")
		})
	}
}

func TestDecrypt_NilInputs(t *testing.T) {
	kp, _ := testKeys(t)

	_, err := Decrypt(nil, kp.PrivateKey)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	payload, err := Encrypt([]byte("x"), kp.PublicKey)
	require.NoError(t, err)
	_, err = Decrypt(payload, nil)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncrypt_NilKey(t *testing.T) {
	_, err := Encrypt([]byte("x"), nil)
	assert.ErrorIs(t, err, ErrEncryptionFailed)
}

func TestEncrypt_LargePayload(t *testing.T) {
	kp, _ := testKeys(t)

	plaintext := bytes.Repeat([]byte("long form submission "), 50*1024)

	payload, err := Encrypt(plaintext, kp.PublicKey)
	require.NoError(t, err)
	got, err := Decrypt(payload, kp.PrivateKey)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got, plaintext), "large payload round trip mismatch")
}
