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
	"testing"
)

func TestMemoryAdapter_LogEvent(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	err := adapter.LogEvent(ctx, &Event{
		EventType:  EventKeysCreated,
		Outcome:    OutcomeSuccess,
		FormID:     "form-1",
		UserID:     "user-1",
		KeyVersion: 1,
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := adapter.Events()
	if len(events) != 1 {
		t.Fatalf("Events() = %d entries, want 1", len(events))
	}
	if events[0].ID == "" {
		t.Error("LogEvent() did not assign an ID")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("LogEvent() did not assign a timestamp")
	}
}

func TestMemoryAdapter_EventsByType(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	for _, et := range []EventType{EventKeysCreated, EventKeyDisclosed, EventKeysCreated} {
		if err := adapter.LogEvent(ctx, &Event{EventType: et}); err != nil {
			t.Fatalf("LogEvent() error = %v", err)
		}
	}

	if got := adapter.EventsByType(EventKeysCreated); len(got) != 2 {
		t.Errorf("EventsByType(created) = %d entries, want 2", len(got))
	}
	if got := adapter.EventsByType(EventKeysExported); len(got) != 0 {
		t.Errorf("EventsByType(exported) = %d entries, want 0", len(got))
	}
}

func TestMemoryAdapter_CopiesEvents(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	event := &Event{EventType: EventKeysCreated, FormID: "form-1"}
	if err := adapter.LogEvent(ctx, event); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	// Neither the caller's struct nor returned copies alias internal state.
	event.FormID = "mutated"
	got := adapter.Events()
	if got[0].FormID != "form-1" {
		t.Error("LogEvent() did not copy the event")
	}
	got[0].FormID = "mutated-again"
	if adapter.Events()[0].FormID != "form-1" {
		t.Error("Events() exposed internal state")
	}
}

func TestMemoryAdapter_Concurrent(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = adapter.LogEvent(ctx, &Event{EventType: EventKeyDisclosed})
			}
		}()
	}
	wg.Wait()

	if got := len(adapter.Events()); got != writers*10 {
		t.Errorf("Events() = %d entries, want %d", got, writers*10)
	}
}

func TestNoop(t *testing.T) {
	if err := NewNoop().LogEvent(context.Background(), &Event{EventType: EventKeysCreated}); err != nil {
		t.Errorf("Noop LogEvent() error = %v", err)
	}
}
