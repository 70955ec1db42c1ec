package store

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"
)

// Options selects and configures the storage. Only the section matching
// Type is used.
type Options struct {
	Type   string       `long:"type" env:"TYPE" default:"memory" choice:"memory" choice:"disk" choice:"badger" choice:"s3" choice:"postgres" choice:"sqlite" description:"storage type"`
	Disk   DiskConfig   `group:"disk" namespace:"disk" env-namespace:"DISK"`
	Badger BadgerConfig `group:"badger" namespace:"badger" env-namespace:"BADGER"`
	S3     S3Config     `group:"s3" namespace:"s3" env-namespace:"S3"`
	SQL    SQLConfig    `group:"sql" namespace:"sql" env-namespace:"SQL"`
}

// New creates the storage described by opts.
func New(ctx context.Context, opts Options, l lgr.L) (Interface, error) {
	switch opts.Type {
	case "memory", "":
		return NewMemDB(), nil
	case "disk":
		return NewDiskStore(opts.Disk)
	case "badger":
		return NewBadgerStore(opts.Badger, l)
	case "s3":
		return NewS3Store(ctx, opts.S3)
	case "postgres":
		return NewPostgresDB(opts.SQL.Connection, opts.SQL.AutoMigrate, l)
	case "sqlite":
		if opts.SQL.Connection == "" {
			return nil, fmt.Errorf("store.New: sqlite requires a database file")
		}
		return NewSQLiteDB(opts.SQL.Connection, opts.SQL.AutoMigrate, l)
	default:
		return nil, fmt.Errorf("store.New: unknown store type: %s", opts.Type)
	}
}
