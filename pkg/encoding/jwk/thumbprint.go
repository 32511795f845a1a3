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

package jwk

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Thumbprint computes the SHA-256 JWK thumbprint as defined in RFC 7638.
// The thumbprint is stable across public and private forms of the same key
// and is used as the key ID (kid) for versioned form keys.
//
// For RSA keys the thumbprint input is {"e":"...","kty":"RSA","n":"..."}
// with lexicographically ordered members and no whitespace.
func (k *Key) Thumbprint() (string, error) {
	if k.Kty != KeyTypeRSA {
		return "", fmt.Errorf("%w: unsupported key type %q", ErrMalformed, k.Kty)
	}
	if k.N == "" || k.E == "" {
		return "", fmt.Errorf("%w: missing modulus or exponent", ErrMalformed)
	}

	// RFC 7638 requires exact member ordering; build the JSON by hand
	// rather than relying on struct field order.
	canonical := fmt.Sprintf(`{"e":%q,"kty":"RSA","n":%q}`, k.E, k.N)
	sum := sha256.Sum256([]byte(canonical))

	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// WithKid returns a copy of the JWK with the kid field set to its RFC 7638
// thumbprint. Idempotent for keys that already carry a thumbprint kid.
func (k *Key) WithKid() (*Key, error) {
	tp, err := k.Thumbprint()
	if err != nil {
		return nil, err
	}
	out := *k
	out.Kid = tp
	return &out, nil
}
