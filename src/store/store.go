// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

// Package store defines a common interface that any concrete share storage
// must implement, along with the stored types.
//
// Shares live in two independent namespaces, one for code shares and one for
// file shares, each mapping a slug to a record. The package provides MemDB,
// SQLStore (postgres and sqlite) and KVStore, which turns any byte-level KV
// (disk, badger or S3) into a store.Interface.
package store

import (
	"context"
	"errors"
	"time"
)

// Namespaces of the two record kinds.
const (
	CodeNamespace = "codeshares"
	FileNamespace = "fileshares"
)

// ErrNotFound is returned when there is no record with the requested slug.
var ErrNotFound = errors.New("record not found")

// ErrInvalidKey is returned by KV implementations for keys that cannot be
// stored safely, e.g. keys with path separators.
var ErrInvalidKey = errors.New("invalid key")

// Interface defines methods that an implementation of a concrete storage
// must provide. Save methods are upserts keyed by the record's slug.
type Interface interface {
	CodeShare(ctx context.Context, slug string) (CodeShare, error)   // get code share by slug
	SaveCodeShare(ctx context.Context, cs CodeShare) error            // create or replace code share
	DeleteCodeShare(ctx context.Context, slug string) (bool, error)   // delete, false if absent
	CodeShares(ctx context.Context) ([]CodeShare, error)              // all code shares
	FileShare(ctx context.Context, slug string) (FileShare, error)   // get file share by slug
	SaveFileShare(ctx context.Context, fs FileShare) error            // create or replace file share
	DeleteFileShare(ctx context.Context, slug string) (bool, error)   // delete, false if absent
	FileShares(ctx context.Context) ([]FileShare, error)              // all file shares
	Close() error                                                     // release resources
}

// CodeShare is a code snippet shared under a slug.
type CodeShare struct {
	Slug         string    `json:"slug" gorm:"primaryKey"`
	ID           string    `json:"id" gorm:"uniqueIndex"`
	Code         string    `json:"code"`
	Language     string    `json:"language"`
	PasswordHash string    `json:"password_hash"`
	HasPassword  bool      `json:"has_password"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"index"`
}

// TableName keeps the SQL table name equal to the namespace.
func (CodeShare) TableName() string { return CodeNamespace }

// Expired reports whether the share has expired at the given moment.
func (cs CodeShare) Expired(now time.Time) bool {
	return !cs.ExpiresAt.After(now)
}

// FileShare is an uploaded file shared under a slug. Content holds the
// base64 encoded file.
type FileShare struct {
	Slug         string    `json:"slug" gorm:"primaryKey"`
	ID           string    `json:"id" gorm:"uniqueIndex"`
	Description  string    `json:"description"`
	FileName     string    `json:"file_name"`
	FileSize     int64     `json:"file_size"`
	MimeType     string    `json:"mime_type"`
	Content      string    `json:"content"`
	PasswordHash string    `json:"password_hash"`
	HasPassword  bool      `json:"has_password"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"index"`
}

// TableName keeps the SQL table name equal to the namespace.
func (FileShare) TableName() string { return FileNamespace }

// Expired reports whether the share has expired at the given moment.
func (fs FileShare) Expired(now time.Time) bool {
	return !fs.ExpiresAt.After(now)
}
