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
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAdapter is an in-memory audit recorder. It is thread-safe and
// suitable for unit tests and single-process deployments; production
// installs typically forward events to the platform audit pipeline.
type MemoryAdapter struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryAdapter creates a new in-memory audit recorder.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		events: make([]*Event, 0),
	}
}

// LogEvent records an audit event, assigning an ID and timestamp when the
// caller left them unset.
func (m *MemoryAdapter) LogEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return nil
	}

	e := *event
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, &e)

	return nil
}

// Events returns a copy of all recorded events in insertion order.
func (m *MemoryAdapter) Events() []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Event, len(m.events))
	for i, e := range m.events {
		ec := *e
		out[i] = &ec
	}
	return out
}

// EventsByType returns recorded events matching the given type.
func (m *MemoryAdapter) EventsByType(t EventType) []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Event
	for _, e := range m.events {
		if e.EventType == t {
			ec := *e
			out = append(out, &ec)
		}
	}
	return out
}

var _ Adapter = (*MemoryAdapter)(nil)
