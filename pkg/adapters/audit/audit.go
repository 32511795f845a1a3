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

// Package audit provides an adapter interface for audit trail emission.
// The encryption core emits structured events for every key lifecycle
// action but never depends on audit delivery for its own correctness: a
// failing audit sink must not block key generation, disclosure, or
// rotation. Events carry identifiers only, never key material.
package audit

import (
	"context"
	"time"
)

// EventType categorizes an audit event.
type EventType string

const (
	// EventKeysCreated records the generation of a form's first key pair.
	EventKeysCreated EventType = "form.keys_created"

	// EventKeysRegenerated records a key rotation.
	EventKeysRegenerated EventType = "form.keys_regenerated"

	// EventKeyDisclosed records a successful one-time private key download.
	EventKeyDisclosed EventType = "form.key_disclosed"

	// EventKeyDisclosureDenied records a rejected redemption attempt
	// (expired, consumed, or unknown token).
	EventKeyDisclosureDenied EventType = "form.key_disclosure_denied"

	// EventKeysExported records a password-protected key export.
	EventKeysExported EventType = "user.keys_exported"

	// EventKeysImported records a key import from a .veilkeys file.
	EventKeysImported EventType = "user.keys_imported"

	// EventDataExportFailed records a failed export or import attempt.
	EventDataExportFailed EventType = "user.data_export_failed"
)

// Outcome indicates the result of the audited operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

// Event is a single audit log entry.
type Event struct {
	// ID is a unique identifier for this event.
	ID string

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// EventType categorizes the event.
	EventType EventType

	// Outcome indicates whether the operation succeeded.
	Outcome Outcome

	// FormID identifies the affected form, if any.
	FormID string

	// UserID identifies the acting owner, if known.
	UserID string

	// KeyVersion is the affected key version, if applicable.
	KeyVersion uint64

	// CorrelationID ties the event to a request.
	CorrelationID string

	// Detail carries a short human-readable description. Never contains
	// key material, passwords, or tokens.
	Detail string
}

// Adapter receives audit events. Implementations must be safe for
// concurrent use and should return quickly; slow sinks belong behind a
// buffering implementation.
type Adapter interface {
	// LogEvent records an audit event.
	LogEvent(ctx context.Context, event *Event) error
}

// Noop is an Adapter that discards all events.
type Noop struct{}

// NewNoop creates an adapter that drops every event.
func NewNoop() *Noop {
	return &Noop{}
}

// LogEvent discards the event.
func (n *Noop) LogEvent(ctx context.Context, event *Event) error {
	return nil
}

var _ Adapter = (*Noop)(nil)
