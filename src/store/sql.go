// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-pkgz/lgr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLConfig is the input configuration for the SQL storage.
type SQLConfig struct {
	Connection  string `long:"connection" env:"CONNECTION" default:"" description:"database connection string (postgres DSN or sqlite file)"`
	AutoMigrate bool   `long:"auto-migrate" env:"AUTO_MIGRATE" description:"create/alter tables on startup"`
}

// SQLStore is an SQL database storage that implements the store.Interface.
// It works with Postgres and SQLite, see NewPostgresDB and NewSQLiteDB.
type SQLStore struct {
	db *gorm.DB
}

// Fail if the struct does not match the Interface.
var _ = Interface(&SQLStore{})

// NewPostgresDB initialises a new instance of SQLStore backed by Postgres.
// It tries to establish a database connection specified by conn and if
// autoMigrate is true it will try and create/alter all the tables.
func NewPostgresDB(conn string, autoMigrate bool, l lgr.L) (*SQLStore, error) {
	s, err := newSQLStore(postgres.Open(conn), autoMigrate, l)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: %w", err)
	}
	return s, nil
}

// NewSQLiteDB initialises a new instance of SQLStore backed by an SQLite
// file. Use ":memory:" for a temporary database.
func NewSQLiteDB(file string, autoMigrate bool, l lgr.L) (*SQLStore, error) {
	s, err := newSQLStore(sqlite.Open(file), autoMigrate, l)
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteDB: %w", err)
	}
	return s, nil
}

func newSQLStore(dialector gorm.Dialector, autoMigrate bool, l lgr.L) (*SQLStore, error) {
	if l == nil {
		l = lgr.NoOp
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(gormWriter{l: l}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}
	if autoMigrate {
		err = db.AutoMigrate(&CodeShare{}, &FileShare{})
	} else {
		if d, e := db.DB(); e == nil {
			err = d.Ping()
		} else {
			err = e
		}
	}
	if err != nil {
		return nil, err
	}

	return &SQLStore{db: db}, nil
}

// CodeShare returns a code share by slug.
func (s *SQLStore) CodeShare(ctx context.Context, slug string) (CodeShare, error) {
	var cs CodeShare
	tx := s.db.WithContext(ctx).Limit(1).Find(&cs, "slug = ?", slug)
	if tx.Error != nil {
		return CodeShare{}, fmt.Errorf("SQLStore.CodeShare: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return CodeShare{}, fmt.Errorf("SQLStore.CodeShare: %w", ErrNotFound)
	}
	return cs, nil
}

// SaveCodeShare inserts a code share or replaces the one with the same slug.
func (s *SQLStore) SaveCodeShare(ctx context.Context, cs CodeShare) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&cs).Error
	if err != nil {
		return fmt.Errorf("SQLStore.SaveCodeShare: %w", err)
	}
	return nil
}

// DeleteCodeShare deletes a code share by slug.
func (s *SQLStore) DeleteCodeShare(ctx context.Context, slug string) (bool, error) {
	tx := s.db.WithContext(ctx).Delete(&CodeShare{}, "slug = ?", slug)
	if tx.Error != nil {
		return false, fmt.Errorf("SQLStore.DeleteCodeShare: %w", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// CodeShares returns all code shares sorted by creation time.
func (s *SQLStore) CodeShares(ctx context.Context) ([]CodeShare, error) {
	shares := []CodeShare{}
	if err := s.db.WithContext(ctx).Order("created_at").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("SQLStore.CodeShares: %w", err)
	}
	return shares, nil
}

// FileShare returns a file share by slug.
func (s *SQLStore) FileShare(ctx context.Context, slug string) (FileShare, error) {
	var fs FileShare
	tx := s.db.WithContext(ctx).Limit(1).Find(&fs, "slug = ?", slug)
	if tx.Error != nil {
		return FileShare{}, fmt.Errorf("SQLStore.FileShare: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return FileShare{}, fmt.Errorf("SQLStore.FileShare: %w", ErrNotFound)
	}
	return fs, nil
}

// SaveFileShare inserts a file share or replaces the one with the same slug.
func (s *SQLStore) SaveFileShare(ctx context.Context, fs FileShare) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&fs).Error
	if err != nil {
		return fmt.Errorf("SQLStore.SaveFileShare: %w", err)
	}
	return nil
}

// DeleteFileShare deletes a file share by slug.
func (s *SQLStore) DeleteFileShare(ctx context.Context, slug string) (bool, error) {
	tx := s.db.WithContext(ctx).Delete(&FileShare{}, "slug = ?", slug)
	if tx.Error != nil {
		return false, fmt.Errorf("SQLStore.DeleteFileShare: %w", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// FileShares returns all file shares sorted by creation time.
func (s *SQLStore) FileShares(ctx context.Context) ([]FileShare, error) {
	shares := []FileShare{}
	if err := s.db.WithContext(ctx).Order("created_at").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("SQLStore.FileShares: %w", err)
	}
	return shares, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	d, err := s.db.DB()
	if err != nil {
		return err
	}
	return d.Close()
}

// gormWriter sends gorm logs to lgr.
type gormWriter struct {
	l lgr.L
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.l.Logf("WARN [gorm] "+format, args...)
}
