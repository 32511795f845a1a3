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

// Package jwk serializes RSA key material as JSON Web Keys (RFC 7517).
// The JWK form is the interchange format for every key that crosses a
// process boundary: the public half embedded in a form, the private half
// written to a .veilkeys export, and the disclosure payload delivered
// through the one-time download token.
package jwk

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNotPrivate is returned when a private key operation is attempted
	// on a JWK that carries only public parameters.
	ErrNotPrivate = errors.New("jwk: missing private key parameters")

	// ErrMalformed is returned when a JWK is structurally invalid.
	ErrMalformed = errors.New("jwk: malformed key")
)

// Key represents an RSA JSON Web Key as defined in RFC 7517 and RFC 7518
// Section 6.3. Fields are base64url-encoded big-endian integers.
type Key struct {
	Kty string `json:"kty"`           // Key Type, always "RSA"
	Use string `json:"use,omitempty"` // Public Key Use ("enc")
	Alg string `json:"alg,omitempty"` // Algorithm ("RSA-OAEP-256")
	Kid string `json:"kid,omitempty"` // Key ID

	// Public key fields (RFC 7518 Section 6.3.1)
	N string `json:"n,omitempty"` // Modulus
	E string `json:"e,omitempty"` // Exponent

	// Private key fields (RFC 7518 Section 6.3.2)
	D  string `json:"d,omitempty"`  // Private Exponent
	P  string `json:"p,omitempty"`  // First Prime Factor
	Q  string `json:"q,omitempty"`  // Second Prime Factor
	DP string `json:"dp,omitempty"` // First Factor CRT Exponent
	DQ string `json:"dq,omitempty"` // Second Factor CRT Exponent
	QI string `json:"qi,omitempty"` // First CRT Coefficient
}

const (
	// KeyTypeRSA is the only key type veilkey produces.
	KeyTypeRSA = "RSA"

	// AlgRSAOAEP256 identifies RSA-OAEP with SHA-256, the wrapping
	// algorithm used by the hybrid encryption engine.
	AlgRSAOAEP256 = "RSA-OAEP-256"

	// UseEncryption marks a key intended for encryption rather than signing.
	UseEncryption = "enc"
)

// FromPublicKey creates a JWK from an RSA public key.
func FromPublicKey(pub *rsa.PublicKey) (*Key, error) {
	if pub == nil || pub.N == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrMalformed)
	}

	return &Key{
		Kty: KeyTypeRSA,
		Use: UseEncryption,
		Alg: AlgRSAOAEP256,
		N:   encodeBig(pub.N),
		E:   encodeBig(big.NewInt(int64(pub.E))),
	}, nil
}

// FromPrivateKey creates a JWK from an RSA private key. The resulting JWK
// includes the private exponent, both primes and the precomputed CRT
// parameters so the key can be reconstructed without a fresh Precompute.
func FromPrivateKey(priv *rsa.PrivateKey) (*Key, error) {
	if priv == nil || priv.N == nil || priv.D == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrMalformed)
	}

	if priv.Precomputed.Dp == nil {
		priv.Precompute()
	}

	key := &Key{
		Kty: KeyTypeRSA,
		Use: UseEncryption,
		Alg: AlgRSAOAEP256,
		N:   encodeBig(priv.N),
		E:   encodeBig(big.NewInt(int64(priv.E))),
		D:   encodeBig(priv.D),
	}

	if len(priv.Primes) >= 2 {
		key.P = encodeBig(priv.Primes[0])
		key.Q = encodeBig(priv.Primes[1])
	}

	if priv.Precomputed.Dp != nil {
		key.DP = encodeBig(priv.Precomputed.Dp)
		key.DQ = encodeBig(priv.Precomputed.Dq)
		key.QI = encodeBig(priv.Precomputed.Qinv)
	}

	return key, nil
}

// ToPublicKey converts the JWK to an RSA public key. Works on both public
// and private JWKs, returning only the public half.
func (k *Key) ToPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != KeyTypeRSA {
		return nil, fmt.Errorf("%w: unsupported key type %q", ErrMalformed, k.Kty)
	}
	if k.N == "" || k.E == "" {
		return nil, fmt.Errorf("%w: missing modulus or exponent", ErrMalformed)
	}

	n, err := decodeBig(k.N)
	if err != nil {
		return nil, fmt.Errorf("%w: modulus: %v", ErrMalformed, err)
	}
	e, err := decodeBig(k.E)
	if err != nil {
		return nil, fmt.Errorf("%w: exponent: %v", ErrMalformed, err)
	}
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, fmt.Errorf("%w: exponent out of range", ErrMalformed)
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// ToPrivateKey converts the JWK to an RSA private key.
// Returns ErrNotPrivate if the JWK carries no private exponent.
func (k *Key) ToPrivateKey() (*rsa.PrivateKey, error) {
	pub, err := k.ToPublicKey()
	if err != nil {
		return nil, err
	}
	if k.D == "" {
		return nil, ErrNotPrivate
	}

	d, err := decodeBig(k.D)
	if err != nil {
		return nil, fmt.Errorf("%w: private exponent: %v", ErrMalformed, err)
	}

	priv := &rsa.PrivateKey{
		PublicKey: *pub,
		D:         d,
	}

	if k.P != "" && k.Q != "" {
		p, err := decodeBig(k.P)
		if err != nil {
			return nil, fmt.Errorf("%w: prime p: %v", ErrMalformed, err)
		}
		q, err := decodeBig(k.Q)
		if err != nil {
			return nil, fmt.Errorf("%w: prime q: %v", ErrMalformed, err)
		}
		priv.Primes = []*big.Int{p, q}
	}

	priv.Precompute()

	return priv, nil
}

// Public returns a copy of the JWK with all private parameters stripped.
// This is the only form the server is ever allowed to persist.
func (k *Key) Public() *Key {
	return &Key{
		Kty: k.Kty,
		Use: k.Use,
		Alg: k.Alg,
		Kid: k.Kid,
		N:   k.N,
		E:   k.E,
	}
}

// IsPrivate returns true if the JWK contains private key parameters.
func (k *Key) IsPrivate() bool {
	return k.D != ""
}

// Marshal returns the JSON encoding of the JWK.
func (k *Key) Marshal() ([]byte, error) {
	return json.Marshal(k)
}

// Unmarshal parses JSON-encoded data into a Key.
func Unmarshal(data []byte) (*Key, error) {
	var k Key
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if k.Kty != KeyTypeRSA {
		return nil, fmt.Errorf("%w: unsupported key type %q", ErrMalformed, k.Kty)
	}
	return &k, nil
}

func encodeBig(n *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(n.Bytes())
}

func decodeBig(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
