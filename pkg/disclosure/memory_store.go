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
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store. It is thread-safe;
// the mutex makes Redeem's check-and-set a single critical section.
// Records are lost on process exit, which for disclosure tokens only
// shortens the redemption window, never lengthens it.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token
	closed bool
}

// NewMemoryStore creates a new in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*Token),
	}
}

// Put stores a freshly issued token record.
func (m *MemoryStore) Put(ctx context.Context, token *Token) error {
	if token == nil || token.Token == "" {
		return ErrInvalidToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	t := cloneToken(token)
	m.tokens[token.Token] = t

	return nil
}

// Get returns a copy of the token record.
func (m *MemoryStore) Get(ctx context.Context, tokenID string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	t, ok := m.tokens[tokenID]
	if !ok {
		return nil, ErrTokenNotFound
	}

	return cloneToken(t), nil
}

// Redeem atomically consumes the token. The whole check-and-set runs under
// the write lock, so concurrent redemptions serialize and exactly one wins.
// The retained record drops the payload; only the consumed marker survives.
func (m *MemoryStore) Redeem(ctx context.Context, formID, tokenID string, now time.Time) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	t, ok := m.tokens[tokenID]
	if !ok {
		return nil, ErrTokenNotFound
	}

	if err := redeemOutcome(t, formID, now); err != nil {
		return nil, err
	}

	t.Consumed = true
	t.ConsumedAt = now

	redeemed := cloneToken(t)
	t.EncryptedPrivateKey = nil

	return redeemed, nil
}

// Delete removes a token record.
func (m *MemoryStore) Delete(ctx context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if _, ok := m.tokens[tokenID]; !ok {
		return ErrTokenNotFound
	}

	delete(m.tokens, tokenID)
	return nil
}

// Close releases the store. After Close all operations return ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.tokens = nil
	return nil
}

func cloneToken(t *Token) *Token {
	c := *t
	c.EncryptedPrivateKey = make([]byte, len(t.EncryptedPrivateKey))
	copy(c.EncryptedPrivateKey, t.EncryptedPrivateKey)
	return &c
}

var _ Store = (*MemoryStore)(nil)
