// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// KV is a byte-level key-value storage split into namespaces. Get must
// return an error wrapping ErrNotFound for a missing key.
type KV interface {
	Get(ctx context.Context, ns, key string) ([]byte, error)
	Put(ctx context.Context, ns, key string, val []byte) error
	Delete(ctx context.Context, ns, key string) (bool, error)
	List(ctx context.Context, ns string) (map[string][]byte, error)
	Close() error
}

// KVStore implements store.Interface on top of any KV, every record is
// stored as a JSON document under its slug.
type KVStore struct {
	kv KV
}

// Fail if the struct does not match the Interface.
var _ = Interface(&KVStore{})

// NewKVStore returns a KVStore backed by kv.
func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) get(ctx context.Context, ns, slug string, v interface{}) error {
	data, err := s.kv.Get(ctx, ns, slug)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s/%s: %w", ns, slug, err)
	}
	return nil
}

func (s *KVStore) put(ctx context.Context, ns, slug string, v interface{}) error {
	if slug == "" {
		return errors.New("record must have a slug")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", ns, slug, err)
	}
	return s.kv.Put(ctx, ns, slug, data)
}

// CodeShare returns a code share by slug.
func (s *KVStore) CodeShare(ctx context.Context, slug string) (CodeShare, error) {
	var cs CodeShare
	if err := s.get(ctx, CodeNamespace, slug, &cs); err != nil {
		return CodeShare{}, fmt.Errorf("KVStore.CodeShare: %w", err)
	}
	return cs, nil
}

// SaveCodeShare creates a new or replaces an existing code share.
func (s *KVStore) SaveCodeShare(ctx context.Context, cs CodeShare) error {
	if err := s.put(ctx, CodeNamespace, cs.Slug, cs); err != nil {
		return fmt.Errorf("KVStore.SaveCodeShare: %w", err)
	}
	return nil
}

// DeleteCodeShare deletes a code share by slug.
func (s *KVStore) DeleteCodeShare(ctx context.Context, slug string) (bool, error) {
	ok, err := s.kv.Delete(ctx, CodeNamespace, slug)
	if err != nil {
		return false, fmt.Errorf("KVStore.DeleteCodeShare: %w", err)
	}
	return ok, nil
}

// CodeShares returns all code shares sorted by creation time.
func (s *KVStore) CodeShares(ctx context.Context) ([]CodeShare, error) {
	all, err := s.kv.List(ctx, CodeNamespace)
	if err != nil {
		return nil, fmt.Errorf("KVStore.CodeShares: %w", err)
	}
	shares := make([]CodeShare, 0, len(all))
	for key, data := range all {
		var cs CodeShare
		if err := json.Unmarshal(data, &cs); err != nil {
			return nil, fmt.Errorf("KVStore.CodeShares: decoding %s: %w", key, err)
		}
		shares = append(shares, cs)
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt.Before(shares[j].CreatedAt)
	})
	return shares, nil
}

// FileShare returns a file share by slug.
func (s *KVStore) FileShare(ctx context.Context, slug string) (FileShare, error) {
	var fs FileShare
	if err := s.get(ctx, FileNamespace, slug, &fs); err != nil {
		return FileShare{}, fmt.Errorf("KVStore.FileShare: %w", err)
	}
	return fs, nil
}

// SaveFileShare creates a new or replaces an existing file share.
func (s *KVStore) SaveFileShare(ctx context.Context, fs FileShare) error {
	if err := s.put(ctx, FileNamespace, fs.Slug, fs); err != nil {
		return fmt.Errorf("KVStore.SaveFileShare: %w", err)
	}
	return nil
}

// DeleteFileShare deletes a file share by slug.
func (s *KVStore) DeleteFileShare(ctx context.Context, slug string) (bool, error) {
	ok, err := s.kv.Delete(ctx, FileNamespace, slug)
	if err != nil {
		return false, fmt.Errorf("KVStore.DeleteFileShare: %w", err)
	}
	return ok, nil
}

// FileShares returns all file shares sorted by creation time.
func (s *KVStore) FileShares(ctx context.Context) ([]FileShare, error) {
	all, err := s.kv.List(ctx, FileNamespace)
	if err != nil {
		return nil, fmt.Errorf("KVStore.FileShares: %w", err)
	}
	shares := make([]FileShare, 0, len(all))
	for key, data := range all {
		var fs FileShare
		if err := json.Unmarshal(data, &fs); err != nil {
			return nil, fmt.Errorf("KVStore.FileShares: decoding %s: %w", key, err)
		}
		shares = append(shares, fs)
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt.Before(shares[j].CreatedAt)
	})
	return shares, nil
}

// Close closes the underlying KV.
func (s *KVStore) Close() error {
	return s.kv.Close()
}
