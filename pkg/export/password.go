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

// Password is a secret buffer used to derive the export encryption key.
// It is copied on construction and can be wiped with Zeroize once the
// export or import completes, minimizing the time the secret lives in
// memory alongside the derived key.
type Password struct {
	secret []byte
}

// NewPassword creates a Password from a byte slice. The input is copied.
func NewPassword(secret []byte) *Password {
	p := make([]byte, len(secret))
	copy(p, secret)
	return &Password{secret: p}
}

// NewPasswordFromString creates a Password from a string.
func NewPasswordFromString(secret string) *Password {
	return &Password{secret: []byte(secret)}
}

// Bytes returns a copy of the password bytes.
func (p *Password) Bytes() []byte {
	b := make([]byte, len(p.secret))
	copy(b, p.secret)
	return b
}

// Len returns the password length in bytes.
func (p *Password) Len() int {
	return len(p.secret)
}

// Zeroize overwrites the password memory with zeros. The Password is
// unusable afterwards.
func (p *Password) Zeroize() {
	for i := range p.secret {
		p.secret[i] = 0
	}
	p.secret = p.secret[:0]
}
