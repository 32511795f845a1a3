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

// Package disclosure implements the one-time private key download protocol
// used at form creation. The form-creation response never carries the
// private key; it carries an opaque single-use token, forcing a second
// explicit fetch before the key crosses the wire. A token moves from
// Issued to exactly one of Consumed or Expired; both are terminal and there
// is no re-issuance path for the same creation event. A leaked download
// link is therefore worth at most one use within fifteen minutes.
package disclosure

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is how long a freshly issued token remains redeemable.
const DefaultTTL = 15 * time.Minute

// tokenBytes is the entropy of the opaque token (256 bits).
const tokenBytes = 32

var (
	// ErrTokenNotFound is returned when no record exists for a token.
	ErrTokenNotFound = errors.New("disclosure: token not found")

	// ErrTokenExpired is returned when the token's window has passed.
	// Expiry is terminal: there is no grace window and no way to mint a
	// replacement token for the same disclosure event. The owner's path
	// forward is key rotation.
	ErrTokenExpired = errors.New("disclosure: token expired")

	// ErrTokenConsumed is returned when the token was already redeemed.
	ErrTokenConsumed = errors.New("disclosure: token already consumed")

	// ErrInvalidToken is returned when a token record is malformed.
	ErrInvalidToken = errors.New("disclosure: invalid token")
)

// Token is the persisted record gating one private key disclosure.
type Token struct {
	// Token is the opaque random redemption credential.
	Token string `json:"token"`

	// FormID binds the disclosure to a form.
	FormID string `json:"form_id"`

	// UserID binds the disclosure to the form owner.
	UserID string `json:"user_id"`

	// EncryptedPrivateKey is the payload released on redemption. The
	// Service seals it before Put and opens it after a winning Redeem;
	// in the store it is always AES-GCM ciphertext and after redemption
	// the retained record no longer carries it at all.
	EncryptedPrivateKey []byte `json:"encrypted_private_key"`

	// IssuedAt is when the token was minted.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is IssuedAt plus the TTL.
	ExpiresAt time.Time `json:"expires_at"`

	// Consumed is set atomically by the first successful redemption.
	Consumed bool `json:"consumed"`

	// ConsumedAt records the redemption time, zero if unredeemed.
	ConsumedAt time.Time `json:"consumed_at,omitzero"`
}

// Expired reports whether the token's window has passed at the given time.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// NewTokenID mints an opaque 256-bit random token identifier.
func NewTokenID() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
