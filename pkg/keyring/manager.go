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

	"github.com/veilforms/veilkey/pkg/encoding/jwk"
	"github.com/veilforms/veilkey/pkg/keypair"
)

// RotationResult is returned by Rotate. NewKeyPair carries the fresh
// private key, which exists only in this return value: the keyring keeps
// the public half and the caller is responsible for delivering the
// private half to the form owner.
type RotationResult struct {
	// NewKeyPair is the freshly generated key pair, Version set to the
	// new version number.
	NewKeyPair *keypair.KeyPair

	// PreviousVersion is the version number that was active before the
	// rotation, now superseded. Zero when this was the first key.
	PreviousVersion uint64
}

// Manager generates form key pairs and records their public halves in a
// Store. It is safe for concurrent use when its Store is.
type Manager struct {
	store Store
}

// NewManager creates a keyring manager backed by the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create generates the first key pair for a form and registers its
// public half as version 1. The returned pair carries the only copy of
// the private key.
func (m *Manager) Create(ctx context.Context, formID string) (*keypair.KeyPair, error) {
	kp, err := keypair.GenerateContext(ctx)
	if err != nil {
		return nil, err
	}
	kp.Version = 1

	err = m.store.CreateVersion(ctx, formID, &VersionInfo{
		Version:   1,
		Kid:       kp.PublicKey.Kid,
		PublicKey: kp.PublicKey,
	})
	if err != nil {
		return nil, err
	}
	return kp, nil
}

// Rotate generates a fresh key pair for a form and registers it as the
// next version. The previously active version is retained in superseded
// state so old submissions stay attributable to the key that decrypts
// them; nothing is re-encrypted. Returns ErrFormNotFound if the form has
// no keys yet.
func (m *Manager) Rotate(ctx context.Context, formID string) (*RotationResult, error) {
	previous, err := m.store.GetCurrentVersion(ctx, formID)
	if err != nil {
		return nil, err
	}

	kp, err := keypair.GenerateContext(ctx)
	if err != nil {
		return nil, err
	}

	// Retry with a re-read version number if a concurrent rotation
	// claimed ours first.
	for {
		next := previous + 1
		kp.Version = next
		err = m.store.CreateVersion(ctx, formID, &VersionInfo{
			Version:   next,
			Kid:       kp.PublicKey.Kid,
			PublicKey: kp.PublicKey,
		})
		if errors.Is(err, ErrVersionExists) {
			previous, err = m.store.GetCurrentVersion(ctx, formID)
			if err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return &RotationResult{NewKeyPair: kp, PreviousVersion: previous}, nil
	}
}

// ActivePublicKey returns the public key new submissions must encrypt
// against.
func (m *Manager) ActivePublicKey(ctx context.Context, formID string) (*jwk.Key, uint64, error) {
	info, err := m.store.GetVersionInfo(ctx, formID, 0)
	if err != nil {
		return nil, 0, err
	}
	return info.PublicKey, info.Version, nil
}

// PublicKey returns the public key of a specific version, for attributing
// historical ciphertext to the key that encrypted it.
func (m *Manager) PublicKey(ctx context.Context, formID string, version uint64) (*jwk.Key, error) {
	info, err := m.store.GetVersionInfo(ctx, formID, version)
	if err != nil {
		return nil, err
	}
	return info.PublicKey, nil
}

// Versions returns the metadata of every key version of a form.
func (m *Manager) Versions(ctx context.Context, formID string) ([]*VersionInfo, error) {
	return m.store.ListVersions(ctx, formID)
}
