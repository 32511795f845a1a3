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
	"encoding/json"
	"errors"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	badgerKeyPrefix = "keyring/form/"

	// createRetries bounds optimistic-concurrency retries when two
	// rotations of the same form race. The loser re-reads and either
	// appends the next version or fails with ErrVersionExists.
	createRetries = 8
)

// BadgerStore is a Store implementation backed by a shared Badger
// database. Each form's version metadata is stored as a single record so
// rotation is one serializable transaction.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore creates a keyring store on an existing Badger database.
// The store does not own the database; Close is a no-op.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

func formKey(formID string) []byte {
	return []byte(badgerKeyPrefix + formID)
}

func (s *BadgerStore) load(txn *badger.Txn, formID string) (*FormKeys, error) {
	item, err := txn.Get(formKey(formID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}

	var fk FormKeys
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &fk)
	})
	if err != nil {
		return nil, err
	}
	return &fk, nil
}

// GetCurrentVersion returns the active version number for a form.
func (s *BadgerStore) GetCurrentVersion(ctx context.Context, formID string) (uint64, error) {
	var version uint64
	err := s.db.View(func(txn *badger.Txn) error {
		fk, err := s.load(txn, formID)
		if err != nil {
			return err
		}
		version = fk.CurrentVersion
		return nil
	})
	return version, err
}

// GetVersionInfo returns metadata for a specific version, or the current
// version when version is 0.
func (s *BadgerStore) GetVersionInfo(ctx context.Context, formID string, version uint64) (*VersionInfo, error) {
	var info *VersionInfo
	err := s.db.View(func(txn *badger.Txn) error {
		fk, err := s.load(txn, formID)
		if err != nil {
			return err
		}
		v := version
		if v == 0 {
			v = fk.CurrentVersion
		}
		found, ok := fk.Versions[v]
		if !ok {
			return ErrVersionNotFound
		}
		info = found
		return nil
	})
	return info, err
}

// ListVersions returns all versions of a form ordered by version number.
func (s *BadgerStore) ListVersions(ctx context.Context, formID string) ([]*VersionInfo, error) {
	var infos []*VersionInfo
	err := s.db.View(func(txn *badger.Txn) error {
		fk, err := s.load(txn, formID)
		if err != nil {
			return err
		}
		infos = make([]*VersionInfo, 0, len(fk.Versions))
		for _, info := range fk.Versions {
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Version < infos[j].Version
	})
	return infos, nil
}

// CreateVersion registers a new active version, superseding the previous
// one, in a single serializable transaction.
func (s *BadgerStore) CreateVersion(ctx context.Context, formID string, info *VersionInfo) error {
	if err := validateVersionInfo(info); err != nil {
		return err
	}

	for attempt := 0; attempt < createRetries; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			now := s.now()
			fk, err := s.load(txn, formID)
			if errors.Is(err, ErrFormNotFound) {
				fk = &FormKeys{
					FormID:   formID,
					Versions: make(map[uint64]*VersionInfo),
					Created:  now,
				}
			} else if err != nil {
				return err
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

			raw, err := json.Marshal(fk)
			if err != nil {
				return err
			}
			return txn.Set(formKey(formID), raw)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return ErrVersionExists
}

// DeleteForm removes all version metadata for a form.
func (s *BadgerStore) DeleteForm(ctx context.Context, formID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := s.load(txn, formID); err != nil {
			return err
		}
		return txn.Delete(formKey(formID))
	})
}

// ListForms returns all form IDs with registered keys.
func (s *BadgerStore) ListForms(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, key[len(badgerKeyPrefix):])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op; the underlying database is owned by the caller.
func (s *BadgerStore) Close() error {
	return nil
}
