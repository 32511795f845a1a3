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

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/veilforms/veilkey/pkg/adapters/logger"
)

// LoggerAdapter forwards audit events to a structured logger. It holds no
// state, so it is the adapter for long-running servers where the audit
// trail is the log stream.
type LoggerAdapter struct {
	log logger.Logger
}

// NewLoggerAdapter creates an adapter writing events through log.
func NewLoggerAdapter(log logger.Logger) *LoggerAdapter {
	return &LoggerAdapter{log: log}
}

// LogEvent writes the event as one structured log line. Never fails.
func (a *LoggerAdapter) LogEvent(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	a.log.Info("audit",
		logger.String("event_id", event.ID),
		logger.String("event_type", string(event.EventType)),
		logger.String("outcome", string(event.Outcome)),
		logger.String("form_id", event.FormID),
		logger.String("user_id", event.UserID),
		logger.Uint64("key_version", event.KeyVersion),
		logger.String("correlation_id", event.CorrelationID),
		logger.String("detail", event.Detail))

	return nil
}

var _ Adapter = (*LoggerAdapter)(nil)
