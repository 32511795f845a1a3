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

	badger "github.com/dgraph-io/badger/v4"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewBadgerStore(db)
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	return store
}

func TestBadgerStore_RequiresDatabase(t *testing.T) {
	if _, err := NewBadgerStore(nil); err == nil {
		t.Error("NewBadgerStore(nil) = nil error, want error")
	}
}

func TestBadgerStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

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
	if string(got.EncryptedPrivateKey) != string(token.EncryptedPrivateKey) {
		t.Error("Get() returned different payload")
	}
}

func TestBadgerStore_RedeemOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Redeem(ctx, token.FormID, token.Token, time.Now())
	if err != nil {
		t.Fatalf("first Redeem() error = %v", err)
	}
	if !got.Consumed {
		t.Error("redeemed token not marked consumed")
	}

	if _, err := store.Redeem(ctx, token.FormID, token.Token, time.Now()); !errors.Is(err, ErrTokenConsumed) {
		t.Errorf("second Redeem() error = %v, want ErrTokenConsumed", err)
	}
}

func TestBadgerStore_RedeemExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

	token := newTestToken(t, time.Minute)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	after := token.ExpiresAt.Add(time.Second)
	if _, err := store.Redeem(ctx, token.FormID, token.Token, after); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Redeem() after expiry error = %v, want ErrTokenExpired", err)
	}

	// Expiry wins over consumed: redeeming in the window first does not
	// change the post-expiry error.
	token2 := newTestToken(t, time.Minute)
	if err := store.Put(ctx, token2); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := store.Redeem(ctx, token2.FormID, token2.Token, time.Now()); err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if _, err := store.Redeem(ctx, token2.FormID, token2.Token, token2.ExpiresAt.Add(time.Second)); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Redeem() on consumed expired token error = %v, want ErrTokenExpired", err)
	}
}

func TestBadgerStore_RedeemNotFound(t *testing.T) {
	store := newTestBadgerStore(t)

	if _, err := store.Redeem(context.Background(), "form-123", "no-such-token", time.Now()); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Redeem() error = %v, want ErrTokenNotFound", err)
	}
}

func TestBadgerStore_ConcurrentRedeem(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	const goroutines = 32
	var (
		wins     atomic.Int64
		consumed atomic.Int64
		others   atomic.Int64
		wg       sync.WaitGroup
		start    = make(chan struct{})
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
				others.Add(1)
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
	if others.Load() != 0 {
		t.Errorf("unexpected errors = %d, want 0", others.Load())
	}
}

func TestBadgerStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

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

func TestBadgerStore_RedeemContextCancelled(t *testing.T) {
	store := newTestBadgerStore(t)

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(context.Background(), token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Redeem(ctx, token.FormID, token.Token, time.Now()); !errors.Is(err, context.Canceled) {
		t.Errorf("Redeem() with cancelled context error = %v, want context.Canceled", err)
	}
}

// A redemption attempt under the wrong form must not burn the token.
func TestBadgerStore_RedeemWrongFormLeavesTokenRedeemable(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

	token := newTestToken(t, DefaultTTL)
	if err := store.Put(ctx, token); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := store.Redeem(ctx, "form-999", token.Token, time.Now()); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("Redeem() under wrong form error = %v, want ErrTokenNotFound", err)
	}

	if _, err := store.Redeem(ctx, token.FormID, token.Token, time.Now()); err != nil {
		t.Fatalf("Redeem() at the issuing form error = %v", err)
	}
}

func TestBadgerStore_RedeemDropsPayload(t *testing.T) {
	ctx := context.Background()
	store := newTestBadgerStore(t)

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
}
