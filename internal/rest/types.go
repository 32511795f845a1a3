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

package rest

import (
	"time"

	"github.com/veilforms/veilkey/pkg/encoding/jwk"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// CreateKeysRequest represents a form key creation request.
type CreateKeysRequest struct {
	UserID string `json:"user_id"`
}

// CreateKeysResponse represents the response for form key creation.
// The private key is never part of this response; it is retrievable
// exactly once through the download URL.
type CreateKeysResponse struct {
	FormID      string    `json:"form_id"`
	Version     uint64    `json:"version"`
	PublicKey   *jwk.Key  `json:"public_key"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DownloadKeyResponse represents the one-time private key disclosure.
type DownloadKeyResponse struct {
	FormID     string   `json:"form_id"`
	UserID     string   `json:"user_id"`
	PrivateKey *jwk.Key `json:"private_key"`
}

// RotateKeysRequest represents a key rotation request.
type RotateKeysRequest struct {
	UserID string `json:"user_id"`
}

// RotateKeysResponse represents the response for key rotation. The new
// private key is returned inline; rotation is an authenticated owner
// action over an established channel.
type RotateKeysResponse struct {
	FormID          string   `json:"form_id"`
	NewVersion      uint64   `json:"new_version"`
	PreviousVersion uint64   `json:"previous_version"`
	PublicKey       *jwk.Key `json:"public_key"`
	PrivateKey      *jwk.Key `json:"private_key"`

	// Warning reminds the owner that rotation never re-encrypts:
	// submissions made before it still require the previous private key.
	Warning string `json:"warning"`
}

// RotationWarning is carried on every rotation response.
const RotationWarning = "Existing submissions still require the previous private key; keep it until they are decrypted."

// PublicKeyResponse represents a public key fetch.
type PublicKeyResponse struct {
	FormID    string   `json:"form_id"`
	Version   uint64   `json:"version"`
	PublicKey *jwk.Key `json:"public_key"`
}

// VersionInfo represents one key version in a listing.
type VersionInfo struct {
	Version uint64    `json:"version"`
	Kid     string    `json:"kid"`
	State   string    `json:"state"`
	Created time.Time `json:"created"`
}

// ListVersionsResponse represents the response for listing key versions.
type ListVersionsResponse struct {
	FormID         string        `json:"form_id"`
	CurrentVersion uint64        `json:"current_version"`
	Versions       []VersionInfo `json:"versions"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
