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

// Package keypair generates the per-form RSA-OAEP key pairs that anchor the
// zero-knowledge encryption scheme. The public half is persisted server-side
// as a form's encryption target; the private half belongs exclusively to the
// form owner and only ever transits the server inside the one-time
// disclosure payload.
package keypair

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/veilforms/veilkey/pkg/encoding/jwk"
)

const (
	// ModulusBits is the RSA modulus length. 2048 bits keeps generation
	// under ~800ms p95 on low-power owner devices while bounding the
	// wrapped session key to exactly 256 bytes.
	ModulusBits = 2048

	// PublicExponent is the RSA public exponent (F4).
	PublicExponent = 65537
)

// ErrKeyGenerationFailure is returned when the underlying cryptographic
// provider cannot produce a key, e.g. the secure random source is
// unavailable. Generation never degrades to a weaker key on failure.
var ErrKeyGenerationFailure = errors.New("keypair: key generation failure")

// KeyPair holds both halves of a form's RSA key pair in JWK form,
// together with the key version assigned by the keyring.
type KeyPair struct {
	// PublicKey is safe to disclose and is persisted server-side.
	PublicKey *jwk.Key `json:"publicKey"`

	// PrivateKey must never be persisted server-side in plaintext.
	PrivateKey *jwk.Key `json:"privateKey"`

	// Version is the form key version, 1-indexed. Assigned by the
	// keyring; zero until the pair is registered.
	Version uint64 `json:"version"`
}

// Generate produces a fresh RSA-OAEP 2048-bit key pair.
//
// Generation is CPU-bound and may take 50-500ms depending on hardware;
// callers on latency-sensitive paths should use GenerateContext.
func Generate() (*KeyPair, error) {
	return generate()
}

// GenerateContext produces a fresh key pair, abandoning the result if ctx
// is done before generation completes. The underlying computation is not
// interruptible, so cancellation bounds the caller's wait, not the CPU work.
func GenerateContext(ctx context.Context) (*KeyPair, error) {
	type result struct {
		kp  *KeyPair
		err error
	}

	ch := make(chan result, 1)
	go func() {
		kp, err := generate()
		ch <- result{kp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailure, ctx.Err())
	case r := <-ch:
		return r.kp, r.err
	}
}

func generate() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, ModulusBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailure, err)
	}

	privJWK, err := jwk.FromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailure, err)
	}
	privJWK, err = privJWK.WithKid()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailure, err)
	}

	pubJWK, err := jwk.FromPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailure, err)
	}
	pubJWK.Kid = privJWK.Kid

	return &KeyPair{
		PublicKey:  pubJWK,
		PrivateKey: privJWK,
	}, nil
}
