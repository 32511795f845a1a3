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

// Package keyring tracks the versioned public keys of each form. Every
// form has exactly one active key version (the encryption target for new
// submissions) plus zero or more superseded versions retained so historical
// ciphertext stays attributable to the key that must decrypt it. Public
// keys are immutable values: rotation publishes a new version rather than
// mutating one in place, so there is no in-between invalid state for
// in-flight encryptions to observe. Private keys never enter this package.
package keyring

import (
	"context"
	"errors"
	"time"

	"github.com/veilforms/veilkey/pkg/encoding/jwk"
)

// Common errors returned by Store implementations.
var (
	// ErrFormNotFound is returned when the form has no registered keys.
	ErrFormNotFound = errors.New("keyring: form not found")

	// ErrVersionNotFound is returned when the requested version doesn't exist.
	ErrVersionNotFound = errors.New("keyring: version not found")

	// ErrVersionExists is returned when creating a version that already exists.
	ErrVersionExists = errors.New("keyring: version already exists")

	// ErrPrivateKeyRejected is returned when a caller attempts to register
	// a JWK carrying private parameters. The server side of the keyring
	// must never hold private material.
	ErrPrivateKeyRejected = errors.New("keyring: private key material rejected")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("keyring: store is closed")
)

// KeyState represents the lifecycle state of a key version.
type KeyState string

const (
	// KeyStateActive marks the version new submissions encrypt against.
	KeyStateActive KeyState = "active"

	// KeyStateSuperseded marks a rotated-out version kept for historical
	// decryption attribution.
	KeyStateSuperseded KeyState = "superseded"
)

// VersionInfo contains the public metadata of one key version.
type VersionInfo struct {
	// Version is the key version number, 1-indexed.
	Version uint64 `json:"version"`

	// Kid is the RFC 7638 thumbprint of the key.
	Kid string `json:"kid"`

	// PublicKey is the version's public JWK. Never contains private
	// parameters.
	PublicKey *jwk.Key `json:"public_key"`

	// State is the current lifecycle state of this version.
	State KeyState `json:"state"`

	// Created is when this version was registered.
	Created time.Time `json:"created"`
}

// FormKeys contains all key version information for a form.
type FormKeys struct {
	// FormID is the owning form.
	FormID string `json:"form_id"`

	// CurrentVersion is the version new submissions encrypt against.
	CurrentVersion uint64 `json:"current_version"`

	// Versions maps version numbers to their metadata.
	Versions map[uint64]*VersionInfo `json:"versions"`

	// Created is when the form's first key was registered.
	Created time.Time `json:"created"`

	// Updated is when any version was last modified.
	Updated time.Time `json:"updated"`
}

// Store persists form key version metadata. Implementations must be
// thread-safe. Only public halves are stored; registering a JWK with
// private parameters fails with ErrPrivateKeyRejected.
type Store interface {
	// GetCurrentVersion returns the active version number for a form.
	// Returns ErrFormNotFound if the form has no keys.
	GetCurrentVersion(ctx context.Context, formID string) (uint64, error)

	// GetVersionInfo returns metadata for a specific version.
	// Use version=0 for the current version.
	GetVersionInfo(ctx context.Context, formID string, version uint64) (*VersionInfo, error)

	// ListVersions returns all versions of a form, ordered by version number.
	ListVersions(ctx context.Context, formID string) ([]*VersionInfo, error)

	// CreateVersion registers a new version as the form's active key and
	// marks the previously active version superseded, all in one
	// indivisible update. The first version also creates the form entry.
	CreateVersion(ctx context.Context, formID string, info *VersionInfo) error

	// DeleteForm removes all version metadata for a form.
	DeleteForm(ctx context.Context, formID string) error

	// ListForms returns all form IDs with registered keys.
	ListForms(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// validateVersionInfo applies the invariants shared by all stores.
func validateVersionInfo(info *VersionInfo) error {
	if info == nil || info.PublicKey == nil || info.Version == 0 {
		return ErrVersionNotFound
	}
	if info.PublicKey.IsPrivate() {
		return ErrPrivateKeyRejected
	}
	return nil
}
