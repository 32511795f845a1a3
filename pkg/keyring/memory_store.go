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
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation for testing
// and single-process deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	forms  map[string]*FormKeys
	closed bool
	now    func() time.Time
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory keyring store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		forms: make(map[string]*FormKeys),
		now:   time.Now,
	}
}

// GetCurrentVersion returns the active version number for a form.
func (s *MemoryStore) GetCurrentVersion(ctx context.Context, formID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	fk, ok := s.forms[formID]
	if !ok {
		return 0, ErrFormNotFound
	}
	return fk.CurrentVersion, nil
}

// GetVersionInfo returns metadata for a specific version, or the current
// version when version is 0.
func (s *MemoryStore) GetVersionInfo(ctx context.Context, formID string, version uint64) (*VersionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	fk, ok := s.forms[formID]
	if !ok {
		return nil, ErrFormNotFound
	}

	if version == 0 {
		version = fk.CurrentVersion
	}
	info, ok := fk.Versions[version]
	if !ok {
		return nil, ErrVersionNotFound
	}
	return cloneVersionInfo(info), nil
}

// ListVersions returns all versions of a form ordered by version number.
func (s *MemoryStore) ListVersions(ctx context.Context, formID string) ([]*VersionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	fk, ok := s.forms[formID]
	if !ok {
		return nil, ErrFormNotFound
	}

	infos := make([]*VersionInfo, 0, len(fk.Versions))
	for _, info := range fk.Versions {
		infos = append(infos, cloneVersionInfo(info))
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Version < infos[j].Version
	})
	return infos, nil
}

// CreateVersion registers a new active version, superseding the previous one.
func (s *MemoryStore) CreateVersion(ctx context.Context, formID string, info *VersionInfo) error {
	if err := validateVersionInfo(info); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	now := s.now()
	fk, ok := s.forms[formID]
	if !ok {
		fk = &FormKeys{
			FormID:   formID,
			Versions: make(map[uint64]*VersionInfo),
			Created:  now,
		}
		s.forms[formID] = fk
	}

	if _, exists := fk.Versions[info.Version]; exists {
		return ErrVersionExists
	}

	if prev, ok := fk.Versions[fk.CurrentVersion]; ok {
		prev.State = KeyStateSuperseded
	}

	stored := cloneVersionInfo(info)
	stored.State = KeyStateActive
	if stored.Created.IsZero() {
		stored.Created = now
	}
	fk.Versions[info.Version] = stored
	fk.CurrentVersion = info.Version
	fk.Updated = now
	return nil
}

// DeleteForm removes all version metadata for a form.
func (s *MemoryStore) DeleteForm(ctx context.Context, formID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, ok := s.forms[formID]; !ok {
		return ErrFormNotFound
	}
	delete(s.forms, formID)
	return nil
}

// ListForms returns all form IDs with registered keys.
func (s *MemoryStore) ListForms(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close marks the store as closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.forms = nil
	return nil
}

// cloneVersionInfo returns a defensive copy so callers cannot mutate
// stored state.
func cloneVersionInfo(info *VersionInfo) *VersionInfo {
	clone := *info
	if info.PublicKey != nil {
		key := *info.PublicKey
		clone.PublicKey = &key
	}
	return &clone
}
