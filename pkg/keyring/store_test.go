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

package keyring

import (
	"context"
	"errors"
	"fmt"
	"testing"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/veilforms/veilkey/pkg/encoding/jwk"
)

// storeFactories builds each Store implementation fresh per test so the
// same contract suite runs against all of them.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			store := NewMemoryStore()
			t.Cleanup(func() { store.Close() })
			return store
		},
		"badger": func(t *testing.T) Store {
			db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
			if err != nil {
				t.Fatalf("badger.Open() error = %v", err)
			}
			t.Cleanup(func() { db.Close() })
			return NewBadgerStore(db)
		},
	}
}

func testVersionInfo(version uint64) *VersionInfo {
	return &VersionInfo{
		Version: version,
		Kid:     fmt.Sprintf("kid-%d", version),
		PublicKey: &jwk.Key{
			Kty: jwk.KeyTypeRSA,
			Use: jwk.UseEncryption,
			Alg: jwk.AlgRSAOAEP256,
			Kid: fmt.Sprintf("kid-%d", version),
			N:   "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86z",
			E:   "AQAB",
		},
	}
}

func TestStore_CreateAndResolve(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			if err := store.CreateVersion(ctx, "form-1", testVersionInfo(1)); err != nil {
				t.Fatalf("CreateVersion(1) error = %v", err)
			}

			current, err := store.GetCurrentVersion(ctx, "form-1")
			if err != nil {
				t.Fatalf("GetCurrentVersion() error = %v", err)
			}
			if current != 1 {
				t.Errorf("current version = %d, want 1", current)
			}

			info, err := store.GetVersionInfo(ctx, "form-1", 0)
			if err != nil {
				t.Fatalf("GetVersionInfo(0) error = %v", err)
			}
			if info.Version != 1 || info.State != KeyStateActive {
				t.Errorf("current = v%d %q, want v1 active", info.Version, info.State)
			}
			if info.Created.IsZero() {
				t.Error("Created timestamp not set")
			}
		})
	}
}

func TestStore_RotationSupersedes(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			for v := uint64(1); v <= 3; v++ {
				if err := store.CreateVersion(ctx, "form-1", testVersionInfo(v)); err != nil {
					t.Fatalf("CreateVersion(%d) error = %v", v, err)
				}
			}

			current, err := store.GetCurrentVersion(ctx, "form-1")
			if err != nil {
				t.Fatalf("GetCurrentVersion() error = %v", err)
			}
			if current != 3 {
				t.Errorf("current version = %d, want 3", current)
			}

			versions, err := store.ListVersions(ctx, "form-1")
			if err != nil {
				t.Fatalf("ListVersions() error = %v", err)
			}
			if len(versions) != 3 {
				t.Fatalf("ListVersions() = %d versions, want 3", len(versions))
			}
			for i, info := range versions {
				wantVersion := uint64(i + 1)
				if info.Version != wantVersion {
					t.Errorf("versions[%d] = v%d, want v%d (ordered)", i, info.Version, wantVersion)
				}
				wantState := KeyStateSuperseded
				if wantVersion == 3 {
					wantState = KeyStateActive
				}
				if info.State != wantState {
					t.Errorf("v%d state = %q, want %q", info.Version, info.State, wantState)
				}
			}

			// Superseded versions stay resolvable for historical ciphertext.
			info, err := store.GetVersionInfo(ctx, "form-1", 1)
			if err != nil {
				t.Fatalf("GetVersionInfo(1) error = %v", err)
			}
			if info.Kid != "kid-1" {
				t.Errorf("v1 kid = %q, want kid-1", info.Kid)
			}
		})
	}
}

func TestStore_DuplicateVersion(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			if err := store.CreateVersion(ctx, "form-1", testVersionInfo(1)); err != nil {
				t.Fatalf("CreateVersion(1) error = %v", err)
			}
			if err := store.CreateVersion(ctx, "form-1", testVersionInfo(1)); !errors.Is(err, ErrVersionExists) {
				t.Errorf("duplicate CreateVersion error = %v, want ErrVersionExists", err)
			}
		})
	}
}

func TestStore_RejectsPrivateKey(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			info := testVersionInfo(1)
			info.PublicKey.D = "cHJpdmF0ZQ"

			if err := store.CreateVersion(ctx, "form-1", info); !errors.Is(err, ErrPrivateKeyRejected) {
				t.Errorf("CreateVersion() with private JWK error = %v, want ErrPrivateKeyRejected", err)
			}
		})
	}
}

func TestStore_UnknownFormAndVersion(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			if _, err := store.GetCurrentVersion(ctx, "nope"); !errors.Is(err, ErrFormNotFound) {
				t.Errorf("GetCurrentVersion() error = %v, want ErrFormNotFound", err)
			}
			if _, err := store.ListVersions(ctx, "nope"); !errors.Is(err, ErrFormNotFound) {
				t.Errorf("ListVersions() error = %v, want ErrFormNotFound", err)
			}

			if err := store.CreateVersion(ctx, "form-1", testVersionInfo(1)); err != nil {
				t.Fatalf("CreateVersion() error = %v", err)
			}
			if _, err := store.GetVersionInfo(ctx, "form-1", 7); !errors.Is(err, ErrVersionNotFound) {
				t.Errorf("GetVersionInfo(7) error = %v, want ErrVersionNotFound", err)
			}
		})
	}
}

func TestStore_DeleteForm(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			if err := store.CreateVersion(ctx, "form-1", testVersionInfo(1)); err != nil {
				t.Fatalf("CreateVersion() error = %v", err)
			}
			if err := store.DeleteForm(ctx, "form-1"); err != nil {
				t.Fatalf("DeleteForm() error = %v", err)
			}
			if _, err := store.GetCurrentVersion(ctx, "form-1"); !errors.Is(err, ErrFormNotFound) {
				t.Errorf("GetCurrentVersion() after delete error = %v, want ErrFormNotFound", err)
			}
			if err := store.DeleteForm(ctx, "form-1"); !errors.Is(err, ErrFormNotFound) {
				t.Errorf("DeleteForm() of missing form error = %v, want ErrFormNotFound", err)
			}
		})
	}
}

func TestStore_ListForms(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			forms, err := store.ListForms(ctx)
			if err != nil {
				t.Fatalf("ListForms() error = %v", err)
			}
			if len(forms) != 0 {
				t.Errorf("ListForms() on empty store = %v, want none", forms)
			}

			for _, formID := range []string{"form-a", "form-b"} {
				if err := store.CreateVersion(ctx, formID, testVersionInfo(1)); err != nil {
					t.Fatalf("CreateVersion(%s) error = %v", formID, err)
				}
			}

			forms, err = store.ListForms(ctx)
			if err != nil {
				t.Fatalf("ListForms() error = %v", err)
			}
			if len(forms) != 2 {
				t.Errorf("ListForms() = %v, want 2 forms", forms)
			}
		})
	}
}

func TestMemoryStore_DefensiveCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	info := testVersionInfo(1)
	if err := store.CreateVersion(ctx, "form-1", info); err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}

	// Mutating the caller's struct after registration must not reach the
	// stored record, and vice versa.
	info.Kid = "mutated"
	got, err := store.GetVersionInfo(ctx, "form-1", 1)
	if err != nil {
		t.Fatalf("GetVersionInfo() error = %v", err)
	}
	if got.Kid != "kid-1" {
		t.Errorf("stored kid = %q, want kid-1", got.Kid)
	}

	got.PublicKey.N = "mutated"
	again, err := store.GetVersionInfo(ctx, "form-1", 1)
	if err != nil {
		t.Fatalf("GetVersionInfo() error = %v", err)
	}
	if again.PublicKey.N == "mutated" {
		t.Error("GetVersionInfo() exposed internal state")
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.CreateVersion(ctx, "form-1", testVersionInfo(1)); err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := store.GetCurrentVersion(ctx, "form-1"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("GetCurrentVersion() after close error = %v, want ErrStoreClosed", err)
	}
	if err := store.CreateVersion(ctx, "form-1", testVersionInfo(2)); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("CreateVersion() after close error = %v, want ErrStoreClosed", err)
	}
}
