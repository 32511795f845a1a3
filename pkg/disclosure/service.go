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
	"fmt"
	"net/url"
	"time"
)

// Issued describes a freshly minted disclosure token. It is the only
// key-related artifact included in a form-creation response.
type Issued struct {
	// Token is the opaque redemption credential.
	Token string `json:"token"`

	// DownloadURL is the single-use link the owner must follow.
	DownloadURL string `json:"downloadUrl"`

	// ExpiresAt is when the link stops working.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service issues and redeems one-time disclosure tokens against an
// injected Store. The private key payload is sealed before it reaches
// the store and opened only for the winning redemption; the store never
// holds plaintext key material.
type Service struct {
	store   Store
	baseURL string
	ttl     time.Duration

	sealingKey []byte
	sealer     *sealer

	// now is the clock source, overridable in tests.
	now func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithTTL overrides the default 15 minute redemption window.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSealingKey sets the AES-256 key sealing payloads at rest. Without
// it the service mints an ephemeral key at construction, so a restart
// invalidates outstanding download links.
func WithSealingKey(key []byte) ServiceOption {
	return func(s *Service) {
		if len(key) > 0 {
			s.sealingKey = key
		}
	}
}

// WithClock overrides the clock source. Intended for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a disclosure service. baseURL is the public origin
// used to build download links, e.g. "https://app.veilforms.com".
func NewService(store Store, baseURL string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("disclosure: store is required")
	}
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("disclosure: invalid base URL %q", baseURL)
	}

	s := &Service{
		store:   store,
		baseURL: baseURL,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sealingKey == nil {
		key, err := newEphemeralSealingKey()
		if err != nil {
			return nil, err
		}
		s.sealingKey = key
	}
	sealer, err := newSealer(s.sealingKey)
	if err != nil {
		return nil, err
	}
	s.sealer = sealer

	return s, nil
}

// Issue mints a token bound to (formID, userID) gating the given private
// key payload. The payload is sealed before it reaches the store. Called
// synchronously during form creation, after key generation and before the
// creation response is written.
func (s *Service) Issue(ctx context.Context, formID, userID string, privateKeyPayload []byte) (*Issued, error) {
	if formID == "" || userID == "" {
		return nil, fmt.Errorf("%w: form and user IDs are required", ErrInvalidToken)
	}
	if len(privateKeyPayload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidToken)
	}

	id, err := NewTokenID()
	if err != nil {
		return nil, err
	}

	sealed, err := s.sealer.seal(privateKeyPayload)
	if err != nil {
		return nil, err
	}

	now := s.now()
	token := &Token{
		Token:               id,
		FormID:              formID,
		UserID:              userID,
		EncryptedPrivateKey: sealed,
		IssuedAt:            now,
		ExpiresAt:           now.Add(s.ttl),
	}

	if err := s.store.Put(ctx, token); err != nil {
		return nil, err
	}

	return &Issued{
		Token:       id,
		DownloadURL: s.DownloadURL(formID, id),
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

// Redeem consumes the token under the given form and returns its record
// with the payload opened. A token minted for a different form reports
// ErrTokenNotFound without consuming it; the form check runs inside the
// store's atomic update. Terminal failures are ErrTokenExpired,
// ErrTokenConsumed, and ErrTokenNotFound; callers should direct owners
// hitting any of them to key rotation, since no re-issuance path exists.
func (s *Service) Redeem(ctx context.Context, formID, tokenID string) (*Token, error) {
	if formID == "" || tokenID == "" {
		return nil, ErrTokenNotFound
	}

	tok, err := s.store.Redeem(ctx, formID, tokenID, s.now())
	if err != nil {
		return nil, err
	}

	payload, err := s.sealer.open(tok.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	tok.EncryptedPrivateKey = payload

	return tok, nil
}

// DownloadURL builds the single-use download link for a token.
func (s *Service) DownloadURL(formID, tokenID string) string {
	return fmt.Sprintf("%s/api/forms/%s/download-key?token=%s",
		s.baseURL, url.PathEscape(formID), url.QueryEscape(tokenID))
}

// TTL returns the configured redemption window.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
