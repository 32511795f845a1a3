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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	// badgerKeyPrefix namespaces token records in a shared database.
	badgerKeyPrefix = "disclosure/token/"

	// recordRetention is how long a record outlives its redemption
	// window. Within this period an expired token still reports
	// ErrTokenExpired rather than ErrTokenNotFound; afterwards Badger's
	// TTL reclaims the entry (and the encrypted payload with it).
	recordRetention = 24 * time.Hour

	// redeemRetries bounds optimistic transaction retries on conflict.
	redeemRetries = 8
)

// BadgerStore is a persistent implementation of Store backed by BadgerDB.
// Redemption runs inside a single serializable transaction; two racing
// redemptions conflict at commit and the loser retries, observing the
// winner's consumed flag.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a token store on an existing Badger database.
// The database may be shared with other veilkey stores; keys are
// prefix-namespaced.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("disclosure: badger database is required")
	}
	return &BadgerStore{db: db}, nil
}

// Put stores a freshly issued token record.
func (s *BadgerStore) Put(ctx context.Context, token *Token) error {
	if token == nil || token.Token == "" {
		return ErrInvalidToken
	}

	val, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	ttl := time.Until(token.ExpiresAt) + recordRetention

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(badgerKey(token.Token), val).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// Get returns a copy of the token record.
func (s *BadgerStore) Get(ctx context.Context, tokenID string) (*Token, error) {
	var token *Token

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(tokenID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			token = &Token{}
			return json.Unmarshal(val, token)
		})
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// Redeem atomically consumes the token. The read, the state check, and the
// consumed write share one transaction; a concurrent commit on the same key
// causes ErrConflict and the losing attempt re-reads, then fails with
// ErrTokenConsumed. The consumed record is written back without its
// payload; only the marker is retained.
func (s *BadgerStore) Redeem(ctx context.Context, formID, tokenID string, now time.Time) (*Token, error) {
	for attempt := 0; attempt < redeemRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var token *Token
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(badgerKey(tokenID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrTokenNotFound
			}
			if err != nil {
				return err
			}

			token = &Token{}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, token)
			}); err != nil {
				return err
			}

			if err := redeemOutcome(token, formID, now); err != nil {
				return err
			}

			token.Consumed = true
			token.ConsumedAt = now

			retained := *token
			retained.EncryptedPrivateKey = nil
			val, err := json.Marshal(&retained)
			if err != nil {
				return err
			}

			entry := badger.NewEntry(badgerKey(tokenID), val).WithTTL(recordRetention)
			return txn.SetEntry(entry)
		})

		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return token, nil
	}

	// Conflict on every attempt means another redemption kept winning;
	// report the token as consumed.
	return nil, ErrTokenConsumed
}

// Delete removes a token record.
func (s *BadgerStore) Delete(ctx context.Context, tokenID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(tokenID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		return txn.Delete(badgerKey(tokenID))
	})
}

// Close is a no-op; the shared database is owned by the caller.
func (s *BadgerStore) Close() error {
	return nil
}

func badgerKey(tokenID string) []byte {
	return []byte(badgerKeyPrefix + tokenID)
}

var _ Store = (*BadgerStore)(nil)
