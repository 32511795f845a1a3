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

package disclosure

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("disclosure: store is closed")

// Store persists disclosure token records. Implementations must be
// thread-safe and must implement Redeem as a single atomic conditional
// update: "check consumed, set consumed, return payload" is indivisible.
// A read-then-write Redeem is a TOCTOU bug that defeats the one-time
// guarantee, so the interface deliberately offers no way to flip the
// consumed flag outside Redeem.
type Store interface {
	// Put stores a freshly issued token record.
	Put(ctx context.Context, token *Token) error

	// Get returns a copy of the token record without mutating it.
	// Returns ErrTokenNotFound if no record exists.
	Get(ctx context.Context, tokenID string) (*Token, error)

	// Redeem atomically consumes the token and returns the record.
	// Exactly one of N concurrent calls for the same unexpired token
	// succeeds; the rest observe ErrTokenConsumed. Expiry is evaluated
	// against now and takes precedence: an expired token reports
	// ErrTokenExpired regardless of its consumed flag. A token presented
	// under a form other than the one it was minted for reports
	// ErrTokenNotFound and stays redeemable at the correct form. The
	// winning redemption is the only caller that ever sees the payload:
	// the retained record keeps its consumed marker but drops
	// EncryptedPrivateKey.
	Redeem(ctx context.Context, formID, tokenID string, now time.Time) (*Token, error)

	// Delete removes a token record. Used by retention sweeps; absence
	// is not an error for callers cleaning up, so implementations return
	// ErrTokenNotFound only for observability.
	Delete(ctx context.Context, tokenID string) error

	// Close releases any resources held by the store.
	Close() error
}

// redeemOutcome applies the shared redemption state machine to a record.
// Returns nil if the token may be consumed now. A form mismatch reports
// ErrTokenNotFound before any state is examined, so an attempt at the wrong
// form learns nothing about the token and burns nothing.
func redeemOutcome(t *Token, formID string, now time.Time) error {
	if t.FormID != formID {
		return ErrTokenNotFound
	}
	if t.Expired(now) {
		return ErrTokenExpired
	}
	if t.Consumed {
		return ErrTokenConsumed
	}
	return nil
}
