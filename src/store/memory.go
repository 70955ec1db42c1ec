// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemDB is a memory storage that implements the store.Interface.
// Because it's a transient storage you will loose all the data once the
// process exits. It's not completely useless though. You can use it when a
// temporary sharing is needed or in tests.
type MemDB struct {
	codeShares map[string]CodeShare
	fileShares map[string]FileShare
	sync.RWMutex
}

// Fail if the struct does not match the Interface.
var _ = Interface(&MemDB{})

// NewMemDB initialises and returns an instance of MemDB.
func NewMemDB() *MemDB {
	var s MemDB
	s.codeShares = make(map[string]CodeShare)
	s.fileShares = make(map[string]FileShare)

	return &s
}

// CodeShare returns a code share by slug.
func (m *MemDB) CodeShare(_ context.Context, slug string) (CodeShare, error) {
	m.RLock()
	defer m.RUnlock()

	cs, ok := m.codeShares[slug]
	if !ok {
		return CodeShare{}, fmt.Errorf("MemDB.CodeShare: %w", ErrNotFound)
	}
	return cs, nil
}

// SaveCodeShare creates a new or replaces an existing code share.
func (m *MemDB) SaveCodeShare(_ context.Context, cs CodeShare) error {
	m.Lock()
	defer m.Unlock()

	m.codeShares[cs.Slug] = cs
	return nil
}

// DeleteCodeShare deletes a code share by slug.
func (m *MemDB) DeleteCodeShare(_ context.Context, slug string) (bool, error) {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.codeShares[slug]; !ok {
		return false, nil
	}
	delete(m.codeShares, slug)
	return true, nil
}

// CodeShares returns all code shares sorted by creation time.
func (m *MemDB) CodeShares(_ context.Context) ([]CodeShare, error) {
	m.RLock()
	shares := make([]CodeShare, 0, len(m.codeShares))
	for _, cs := range m.codeShares {
		shares = append(shares, cs)
	}
	m.RUnlock()

	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt.Before(shares[j].CreatedAt)
	})
	return shares, nil
}

// FileShare returns a file share by slug.
func (m *MemDB) FileShare(_ context.Context, slug string) (FileShare, error) {
	m.RLock()
	defer m.RUnlock()

	fs, ok := m.fileShares[slug]
	if !ok {
		return FileShare{}, fmt.Errorf("MemDB.FileShare: %w", ErrNotFound)
	}
	return fs, nil
}

// SaveFileShare creates a new or replaces an existing file share.
func (m *MemDB) SaveFileShare(_ context.Context, fs FileShare) error {
	m.Lock()
	defer m.Unlock()

	m.fileShares[fs.Slug] = fs
	return nil
}

// DeleteFileShare deletes a file share by slug.
func (m *MemDB) DeleteFileShare(_ context.Context, slug string) (bool, error) {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.fileShares[slug]; !ok {
		return false, nil
	}
	delete(m.fileShares, slug)
	return true, nil
}

// FileShares returns all file shares sorted by creation time.
func (m *MemDB) FileShares(_ context.Context) ([]FileShare, error) {
	m.RLock()
	shares := make([]FileShare, 0, len(m.fileShares))
	for _, fs := range m.fileShares {
		shares = append(shares, fs)
	}
	m.RUnlock()

	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt.Before(shares[j].CreatedAt)
	})
	return shares, nil
}

// Close does nothing, there is nothing to release.
func (m *MemDB) Close() error {
	return nil
}
