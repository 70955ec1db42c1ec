package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

const defaultDirMode = 0o755

// DiskConfig is the input configuration for disk storage of shares.
type DiskConfig struct {
	// DataDir must be a writable directory for storing shares.
	DataDir string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"directory where shares are stored"`
	// How much memory to use for k/v caches. This is x2 (2 caches). 0 is probably good for this app.
	CacheSize uint64 `long:"cache-size" env:"CACHE_SIZE" description:"file system storage cache size"`
	// The file mode given to new folders. Uses a sane default it omitted.
	DirMode os.FileMode `long:"dir-mode" env:"DIR_MODE" description:"file mode for new directories"`
}

// DiskKV is a KV that keeps every record in its own file, one directory per
// namespace.
type DiskKV struct {
	spaces map[string]*diskv.Diskv
}

// Fail if the struct does not match the KV interface.
var _ = KV(&DiskKV{})

// NewDiskKV should be called once on startup to initialize a disk storage
// backend for shares.
func NewDiskKV(config DiskConfig) (*DiskKV, error) {
	if err := makeDiskStorageFolders(&config); err != nil {
		return nil, err
	}

	kv := &DiskKV{spaces: make(map[string]*diskv.Diskv)}
	for _, ns := range []string{CodeNamespace, FileNamespace} {
		kv.spaces[ns] = diskv.New(diskv.Options{
			BasePath:     filepath.Join(config.DataDir, ns),
			TempDir:      filepath.Join(config.DataDir, "tmp"),
			CacheSizeMax: config.CacheSize,
		})
	}

	return kv, nil
}

// NewDiskStore returns a store.Interface that keeps shares on disk.
func NewDiskStore(config DiskConfig) (*KVStore, error) {
	kv, err := NewDiskKV(config)
	if err != nil {
		return nil, err
	}
	return NewKVStore(kv), nil
}

func makeDiskStorageFolders(config *DiskConfig) error {
	if config.DirMode == 0 {
		config.DirMode = defaultDirMode
	}

	dirStat, err := os.Stat(config.DataDir)
	if err != nil {
		return fmt.Errorf("data dir missing? %w", err)
	}

	if !dirStat.IsDir() {
		return fmt.Errorf("data dir is not a directory: %s", dirStat.Name())
	}

	for _, dir := range []string{CodeNamespace, FileNamespace, "tmp"} {
		if err := os.MkdirAll(filepath.Join(config.DataDir, dir), config.DirMode); err != nil {
			return fmt.Errorf("creating %s data store: %w", dir, err)
		}
	}

	return nil
}

// checkKey refuses keys that diskv would turn into a path outside the
// namespace directory.
func checkKey(key string) error {
	if key == "" || key == "." || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func (f *DiskKV) space(ns string) (*diskv.Diskv, error) {
	d, ok := f.spaces[ns]
	if !ok {
		return nil, fmt.Errorf("unknown namespace %q", ns)
	}
	return d, nil
}

// Get reads a record from disk.
func (f *DiskKV) Get(_ context.Context, ns, key string) ([]byte, error) {
	d, err := f.space(ns)
	if err != nil {
		return nil, fmt.Errorf("disk.Get: %w", err)
	}
	if err := checkKey(key); err != nil {
		return nil, fmt.Errorf("disk.Get: %w", err)
	}
	if !d.Has(key) {
		return nil, fmt.Errorf("disk.Get (%s/%s): %w", ns, key, ErrNotFound)
	}
	data, err := d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("disk.Get (%s/%s): %w", ns, key, err)
	}
	return data, nil
}

// Put writes a record to disk replacing the existing one.
func (f *DiskKV) Put(_ context.Context, ns, key string, val []byte) error {
	d, err := f.space(ns)
	if err != nil {
		return fmt.Errorf("disk.Put: %w", err)
	}
	if err := checkKey(key); err != nil {
		return fmt.Errorf("disk.Put: %w", err)
	}
	if err := d.Write(key, val); err != nil {
		return fmt.Errorf("disk.Put (%s/%s): %w", ns, key, err)
	}
	return nil
}

// Delete removes a record from disk.
func (f *DiskKV) Delete(_ context.Context, ns, key string) (bool, error) {
	d, err := f.space(ns)
	if err != nil {
		return false, fmt.Errorf("disk.Delete: %w", err)
	}
	if err := checkKey(key); err != nil {
		return false, fmt.Errorf("disk.Delete: %w", err)
	}
	if !d.Has(key) {
		return false, nil
	}
	if err := d.Erase(key); err != nil {
		return false, fmt.Errorf("disk.Delete (%s/%s): %w", ns, key, err)
	}
	return true, nil
}

// List reads all records of a namespace.
func (f *DiskKV) List(_ context.Context, ns string) (map[string][]byte, error) {
	d, err := f.space(ns)
	if err != nil {
		return nil, fmt.Errorf("disk.List: %w", err)
	}

	res := make(map[string][]byte)
	for key := range d.Keys(nil) {
		data, err := d.Read(key)
		if err != nil {
			// the record was deleted while we were iterating
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("disk.List (%s/%s): %w", ns, key, err)
		}
		res[key] = data
	}
	return res, nil
}

// Close does nothing, diskv doesn't hold any open files.
func (f *DiskKV) Close() error {
	return nil
}
