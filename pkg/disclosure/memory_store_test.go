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
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestToken(t *testing.T, ttl time.Duration) *Token {
	t.Helper()
	id, err := NewTokenID()
	if err != nil {
		t.Fatalf("NewTokenID() error = %v", err)
	}
	now := time.Now()
	return &Token{
		Token:               id,
		FormID:              "form-123",
		UserID:              "user-456",
		EncryptedPrivateKey: []byte(`{"kty":"RSA"}`),
		IssuedAt:            now,
		ExpiresAt:           now.Add(ttl),
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, token.Token)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FormID != token.FormID || got.UserID != token.UserID {
		t.Error("Get() returned different binding")
	}
	if got.Consumed {
		t.Error("freshly issued token reported consumed")
	}

	// Get returns a copy; mutating it must not affect the stored record.
	got.EncryptedPrivateKey[0] = 'X'
	again, err := store.Get(ctx, token.Token)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.EncryptedPrivateKey[0] == 'X' {
		t.Error("Get() exposed internal state")
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	if _, err := store.Get(context.Background(), "no-such-token"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Get() error = %v, want ErrTokenNotFound", err)
	}
}

func TestMemoryStore_RedeemOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Redeem(ctx, token.FormID, token.Token, time.Now())
	if err != nil {
		t.Fatalf("first Redeem() error = %v", err)
	}
	if !got.Consumed || got.ConsumedAt.IsZero() {
		t.Error("redeemed token not marked consumed")
	}
	if string(got.EncryptedPrivateKey) != `{"kty":"RSA"}` {
		t.Error("Redeem() returned wrong payload")
	}

	if _, err := store.Redeem(ctx, token.FormID, token.Token, time.Now()); !errors.Is(err, ErrTokenConsumed) {
		t.Errorf("second Redeem() error = %v, want ErrTokenConsumed", err)
	}
}

func TestMemoryStore_RedeemExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	token := newTestToken(t, time.Minute)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	after := token.ExpiresAt.Add(time.Second)
	if _, err := store.Redeem(ctx, token.FormID, token.Token, after); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Redeem() after expiry error = %v, want ErrTokenExpired", err)
	}
}

// TestMemoryStore_ExpiryPrecedesConsumed pins the error precedence: once the
// window has passed, a consumed token reports expired, not consumed.
func TestMemoryStore_ExpiryPrecedesConsumed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	token := newTestToken(t, time.Minute)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := store.Redeem(ctx, token.FormID, token.Token, time.Now()); err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}

	after := token.ExpiresAt.Add(time.Second)
	if _, err := store.Redeem(ctx, token.FormID, token.Token, after); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Redeem() on consumed expired token error = %v, want ErrTokenExpired", err)
	}
}

// TestMemoryStore_ConcurrentRedeem races many goroutines on one token and
// requires exactly one winner.
func TestMemoryStore_ConcurrentRedeem(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	const goroutines = 64
	var (
		wins      atomic.Int64
		consumed  atomic.Int64
		unexpects atomic.Int64
		wg        sync.WaitGroup
		start     = make(chan struct{})
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.Redeem(ctx, token.FormID, token.Token, time.Now())
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrTokenConsumed):
				consumed.Add(1)
			default:
				unexpects.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want exactly 1", wins.Load())
	}
	if consumed.Load() != goroutines-1 {
		t.Errorf("ErrTokenConsumed observed %d times, want %d", consumed.Load(), goroutines-1)
	}
	if unexpects.Load() != 0 {
		t.Errorf("unexpected errors = %d, want 0", unexpects.Load())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Delete(ctx, token.Token); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, token.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrTokenNotFound", err)
	}
	if err := store.Delete(ctx, token.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Delete() of missing token error = %v, want ErrTokenNotFound", err)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := store.Put(ctx, newTestToken(t, DefaultTTL)); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Put() after close error = %v, want ErrStoreClosed", err)
	}
	if _, err := store.Get(ctx, token.Token); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get() after close error = %v, want ErrStoreClosed", err)
	}
	if _, err := store.Redeem(ctx, token.FormID, token.Token, time.Now()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Redeem() after close error = %v, want ErrStoreClosed", err)
	}
}

func TestMemoryStore_PutInvalid(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	if err := store.Put(context.Background(), nil); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Put(nil) error = %v, want ErrInvalidToken", err)
	}
	if err := store.Put(context.Background(), &Token{}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Put() with empty ID error = %v, want ErrInvalidToken", err)
	}
}

func TestNewTokenID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewTokenID()
		if err != nil {
			t.Fatalf("NewTokenID() error = %v", err)
		}
		// 32 bytes base64url without padding is 43 characters.
		if len(id) != 43 {
			t.Fatalf("token length = %d, want 43", len(id))
		}
		if seen[id] {
			t.Fatal("NewTokenID() produced a duplicate")
		}
		seen[id] = true
	}
}

// A redemption attempt under the wrong form must not burn the token.
func TestMemoryStore_RedeemWrongFormLeavesTokenRedeemable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := store.Redeem(ctx, "form-999", token.Token, time.Now()); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("Redeem() under wrong form error = %v, want ErrTokenNotFound", err)
	}

	got, err := store.Redeem(ctx, token.FormID, token.Token, time.Now())
	if err != nil {
		t.Fatalf("Redeem() at the issuing form error = %v", err)
	}
	if !got.Consumed {
		t.Error("winning redemption did not mark the token consumed")
	}
}

func TestMemoryStore_RedeemDropsPayload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Redeem(ctx, token.FormID, token.Token, time.Now())
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if len(got.EncryptedPrivateKey) == 0 {
		t.Fatal("winning redemption received no payload")
	}

	retained, err := store.Get(ctx, token.Token)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(retained.EncryptedPrivateKey) != 0 {
		t.Error("consumed record retained the payload")
	}
	if !retained.Consumed {
		t.Error("consumed record lost its marker")
	}
}
