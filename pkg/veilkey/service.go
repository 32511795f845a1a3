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

// Package veilkey ties the encryption core together: key generation,
// public key versioning, one-time private key disclosure, and rotation.
// The Service here is the single unit the REST server and CLI consume.
//
// The server-side invariant this package enforces is simple: a private
// key exists in server memory only between its generation and the moment
// its disclosure token is written, and again only inside the one
// redemption that hands it to the owner. It is never persisted alongside
// its public half and never logged.
package veilkey

import (
	"context"
	"errors"
	"time"

	"github.com/veilforms/veilkey/pkg/adapters/audit"
	"github.com/veilforms/veilkey/pkg/adapters/logger"
	"github.com/veilforms/veilkey/pkg/correlation"
	"github.com/veilforms/veilkey/pkg/disclosure"
	"github.com/veilforms/veilkey/pkg/encoding/jwk"
	"github.com/veilforms/veilkey/pkg/export"
	"github.com/veilforms/veilkey/pkg/keypair"
	"github.com/veilforms/veilkey/pkg/keyring"
	"github.com/veilforms/veilkey/pkg/metrics"
)

// ErrInvalidRequest is returned when a required identifier is missing.
var ErrInvalidRequest = errors.New("veilkey: invalid request")

// CreationResult is returned by CreateFormKeys. The private key is not
// present: it travels only through the one-time disclosure token.
type CreationResult struct {
	// FormID is the form the keys belong to.
	FormID string

	// Version is the new key version, 1 for a fresh form.
	Version uint64

	// PublicKey is the public JWK new submissions encrypt against.
	PublicKey *jwk.Key

	// Disclosure carries the one-time token and download URL for the
	// private key.
	Disclosure *disclosure.Issued
}

// RotationResult is returned by RotateFormKeys. Unlike creation, the new
// private key is returned inline: rotation is an authenticated owner
// action taken over an established channel.
type RotationResult struct {
	FormID          string
	NewKeyPair      *keypair.KeyPair
	PreviousVersion uint64
}

// Service orchestrates the encryption core modules.
type Service struct {
	keyring    *keyring.Manager
	disclosure *disclosure.Service
	audit      audit.Adapter
	logger     logger.Logger
	storeName  string
}

// Option configures a Service.
type Option func(*Service)

// WithAudit sets the audit sink. Defaults to a no-op adapter.
func WithAudit(a audit.Adapter) Option {
	return func(s *Service) { s.audit = a }
}

// WithStoreName sets the store label used in metrics. Defaults to "memory".
func WithStoreName(name string) Option {
	return func(s *Service) { s.storeName = name }
}

// NewService creates the facade over a keyring manager and a disclosure
// service.
func NewService(kr *keyring.Manager, disc *disclosure.Service, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		keyring:    kr,
		disclosure: disc,
		audit:      audit.NewNoop(),
		logger:     log,
		storeName:  "memory",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFormKeys generates the first key pair for a form, registers the
// public half as version 1, and issues a one-time disclosure token for
// the private half. On return the service holds no copy of the private
// key outside the token store.
func (s *Service) CreateFormKeys(ctx context.Context, formID, userID string) (*CreationResult, error) {
	if formID == "" || userID == "" {
		return nil, ErrInvalidRequest
	}

	start := time.Now()
	kp, err := s.keyring.Create(ctx, formID)
	if err != nil {
		metrics.RecordOperation(metrics.OpCreateKeys, s.storeName, metrics.StatusError, time.Since(start).Seconds())
		s.emit(ctx, audit.EventKeysCreated, audit.OutcomeFailure, formID, userID, 0, "key generation failed")
		return nil, err
	}

	privateJWK, err := kp.PrivateKey.Marshal()
	if err != nil {
		metrics.RecordOperation(metrics.OpCreateKeys, s.storeName, metrics.StatusError, time.Since(start).Seconds())
		return nil, err
	}

	issued, err := s.disclosure.Issue(ctx, formID, userID, privateJWK)
	if err != nil {
		metrics.RecordOperation(metrics.OpCreateKeys, s.storeName, metrics.StatusError, time.Since(start).Seconds())
		s.emit(ctx, audit.EventKeysCreated, audit.OutcomeFailure, formID, userID, kp.Version, "disclosure token issue failed")
		return nil, err
	}

	metrics.RecordOperation(metrics.OpCreateKeys, s.storeName, metrics.StatusSuccess, time.Since(start).Seconds())
	metrics.RecordTokenIssued()
	s.emit(ctx, audit.EventKeysCreated, audit.OutcomeSuccess, formID, userID, kp.Version, "form keys created")
	s.logger.Info("form keys created",
		logger.String("form_id", formID),
		logger.Uint64("version", kp.Version),
		logger.String("kid", kp.PublicKey.Kid))

	return &CreationResult{
		FormID:     formID,
		Version:    kp.Version,
		PublicKey:  kp.PublicKey,
		Disclosure: issued,
	}, nil
}

// RedeemDownloadToken performs the one-time private key disclosure for
// the given form. Exactly one call per token can succeed; a token minted
// for another form is treated as unknown and stays redeemable at its own
// form. Every outcome is audited.
func (s *Service) RedeemDownloadToken(ctx context.Context, formID, tokenID string) (*disclosure.Token, error) {
	start := time.Now()
	tok, err := s.disclosure.Redeem(ctx, formID, tokenID)
	if err != nil {
		status := redemptionStatus(err)
		metrics.RecordOperation(metrics.OpRedeemToken, s.storeName, metrics.StatusError, time.Since(start).Seconds())
		metrics.RecordTokenRedemption(status)
		s.emit(ctx, audit.EventKeyDisclosureDenied, audit.OutcomeDenied, formID, "", 0, status)
		return nil, err
	}

	metrics.RecordOperation(metrics.OpRedeemToken, s.storeName, metrics.StatusSuccess, time.Since(start).Seconds())
	metrics.RecordTokenRedemption(metrics.StatusSuccess)
	s.emit(ctx, audit.EventKeyDisclosed, audit.OutcomeSuccess, tok.FormID, tok.UserID, 0, "private key disclosed")
	s.logger.Info("disclosure token redeemed", logger.String("form_id", tok.FormID))
	return tok, nil
}

// RotateFormKeys generates a fresh key pair for a form and registers it
// as the next version. Previous public keys stay resolvable; nothing is
// re-encrypted. The new private key is returned inline to the caller.
func (s *Service) RotateFormKeys(ctx context.Context, formID, userID string) (*RotationResult, error) {
	if formID == "" {
		return nil, ErrInvalidRequest
	}

	start := time.Now()
	res, err := s.keyring.Rotate(ctx, formID)
	if err != nil {
		metrics.RecordOperation(metrics.OpRotate, s.storeName, metrics.StatusError, time.Since(start).Seconds())
		s.emit(ctx, audit.EventKeysRegenerated, audit.OutcomeFailure, formID, userID, 0, "rotation failed")
		return nil, err
	}

	metrics.RecordOperation(metrics.OpRotate, s.storeName, metrics.StatusSuccess, time.Since(start).Seconds())
	s.emit(ctx, audit.EventKeysRegenerated, audit.OutcomeSuccess, formID, userID, res.NewKeyPair.Version, "form keys rotated")
	s.logger.Info("form keys rotated",
		logger.String("form_id", formID),
		logger.Uint64("new_version", res.NewKeyPair.Version),
		logger.Uint64("previous_version", res.PreviousVersion))

	return &RotationResult{
		FormID:          formID,
		NewKeyPair:      res.NewKeyPair,
		PreviousVersion: res.PreviousVersion,
	}, nil
}

// ActivePublicKey returns the public key new submissions encrypt against.
func (s *Service) ActivePublicKey(ctx context.Context, formID string) (*jwk.Key, uint64, error) {
	if formID == "" {
		return nil, 0, ErrInvalidRequest
	}
	return s.keyring.ActivePublicKey(ctx, formID)
}

// PublicKey resolves a historical key version for ciphertext attribution.
func (s *Service) PublicKey(ctx context.Context, formID string, version uint64) (*jwk.Key, error) {
	if formID == "" {
		return nil, ErrInvalidRequest
	}
	return s.keyring.PublicKey(ctx, formID, version)
}

// KeyVersions lists all key versions of a form.
func (s *Service) KeyVersions(ctx context.Context, formID string) ([]*keyring.VersionInfo, error) {
	if formID == "" {
		return nil, ErrInvalidRequest
	}
	return s.keyring.Versions(ctx, formID)
}

// ExportUserKeys seals the supplied private keys into a password-protected
// envelope on the user's behalf. The keys come from the caller and are not
// read from or written to any server store.
func (s *Service) ExportUserKeys(ctx context.Context, userID string, keys map[string]*keypair.KeyPair, password *export.Password) (*export.Envelope, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}

	start := time.Now()
	env, err := export.Keys(keys, password)
	if err != nil {
		metrics.RecordOperation(metrics.OpExport, s.storeName, metrics.StatusError, time.Since(start).Seconds())
		s.emit(ctx, audit.EventDataExportFailed, audit.OutcomeFailure, "", userID, 0, "key export failed")
		return nil, err
	}

	metrics.RecordOperation(metrics.OpExport, s.storeName, metrics.StatusSuccess, time.Since(start).Seconds())
	s.emit(ctx, audit.EventKeysExported, audit.OutcomeSuccess, "", userID, 0, "keys exported")
	s.logger.Info("user keys exported", logger.String("user_id", userID))
	return env, nil
}

// ImportUserKeys opens a password-protected envelope and returns the key
// pairs it holds. Nothing is persisted; the caller decides what to do
// with the recovered keys.
func (s *Service) ImportUserKeys(ctx context.Context, userID string, env *export.Envelope, password *export.Password) (map[string]*keypair.KeyPair, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}

	start := time.Now()
	keys, err := export.Import(env, password)
	if err != nil {
		metrics.RecordOperation(metrics.OpImport, s.storeName, metrics.StatusError, time.Since(start).Seconds())
		s.emit(ctx, audit.EventKeysImported, audit.OutcomeFailure, "", userID, 0, "key import failed")
		return nil, err
	}

	metrics.RecordOperation(metrics.OpImport, s.storeName, metrics.StatusSuccess, time.Since(start).Seconds())
	s.emit(ctx, audit.EventKeysImported, audit.OutcomeSuccess, "", userID, 0, "keys imported")
	s.logger.Info("user keys imported", logger.String("user_id", userID))
	return keys, nil
}

// emit sends an audit event. Audit delivery failures are logged but do
// not fail the audited operation.
func (s *Service) emit(ctx context.Context, eventType audit.EventType, outcome audit.Outcome, formID, userID string, version uint64, detail string) {
	event := &audit.Event{
		Timestamp:     time.Now(),
		EventType:     eventType,
		Outcome:       outcome,
		FormID:        formID,
		UserID:        userID,
		KeyVersion:    version,
		CorrelationID: correlation.GetCorrelationID(ctx),
		Detail:        detail,
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("audit event delivery failed",
			logger.String("event_type", string(eventType)),
			logger.Error(err))
	}
}

// redemptionStatus maps a redemption error to a coarse metrics status.
func redemptionStatus(err error) string {
	switch {
	case errors.Is(err, disclosure.ErrTokenExpired):
		return "expired"
	case errors.Is(err, disclosure.ErrTokenConsumed):
		return "consumed"
	case errors.Is(err, disclosure.ErrTokenNotFound):
		return "not_found"
	default:
		return "error"
	}
}
