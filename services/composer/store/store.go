// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store archives finished searches in a local badger database
// so their results outlive the process.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/cccbr/elf/services/composer/datatypes"
)

const keyPrefix = "search/"

// ErrNotFound is returned when no archived search has the requested id.
var ErrNotFound = errors.New("archived search not found")

// Store wraps a badger database holding archived searches keyed by job
// id.
type Store struct {
	db *badger.DB
}

// Open creates or opens the archive at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open search archive at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a finished search, overwriting any previous record with
// the same id.
func (s *Store) Save(rec *datatypes.ArchivedSearch) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode search %s: %w", rec.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+rec.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to archive search %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads one archived search.
func (s *Store) Get(id string) (*datatypes.ArchivedSearch, error) {
	var rec datatypes.ArchivedSearch
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load search %s: %w", id, err)
	}
	return &rec, nil
}

// List returns every archived search, newest first.
func (s *Store) List() ([]*datatypes.ArchivedSearch, error) {
	var out []*datatypes.ArchivedSearch
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec datatypes.ArchivedSearch
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list archived searches: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	return out, nil
}
