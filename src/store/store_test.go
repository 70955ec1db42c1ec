package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

var (
	mdb     *MemDB
	ddb     *KVStore
	bdb     *KVStore
	sdb     *SQLStore
	letters = []rune("abcdefghijklmnopqrstuvwxyz0123456789")
)

// TestMain is a setup function for the test suite. It creates an instance of
// every store that doesn't need an external service.
func TestMain(m *testing.M) {
	mdb = NewMemDB()

	dir, err := os.MkdirTemp("", "go-share-tests")
	if err != nil {
		fmt.Printf("got error making disk store folder: %s\n", err)
		os.Exit(1)
	}

	ddb, err = NewDiskStore(DiskConfig{DataDir: dir})
	if err != nil {
		fmt.Printf("got error making disk store: %s\n", err)
		os.Exit(1)
	}

	bdb, err = NewBadgerStore(BadgerConfig{InMemory: true}, nil)
	if err != nil {
		fmt.Printf("got error making badger store: %s\n", err)
		os.Exit(1)
	}

	sdb, err = NewSQLiteDB(filepath.Join(dir, "test.db"), true, nil)
	if err != nil {
		fmt.Printf("got error making sqlite store: %s\n", err)
		os.Exit(1)
	}

	c := m.Run()

	_ = bdb.Close()
	_ = sdb.Close()
	_ = os.RemoveAll(dir)
	os.Exit(c)
}

func randomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))] // #nosec
	}
	return string(b)
}

func randomCodeShare() CodeShare {
	created := time.Now().UTC().Truncate(time.Millisecond)
	return CodeShare{
		Slug:         "code-" + randomString(12),
		ID:           uuid.NewString(),
		Code:         "fmt.Println(" + randomString(20) + ")",
		Language:     "go",
		PasswordHash: randomString(60),
		HasPassword:  true,
		CreatedAt:    created,
		ExpiresAt:    created.AddDate(0, 0, 14),
	}
}

func randomFileShare() FileShare {
	created := time.Now().UTC().Truncate(time.Millisecond)
	content := []byte(randomString(256))
	return FileShare{
		Slug:        "file-" + randomString(12),
		ID:          uuid.NewString(),
		Description: "random file",
		FileName:    randomString(8) + ".txt",
		FileSize:    int64(len(content)),
		MimeType:    "text/plain",
		Content:     base64.StdEncoding.EncodeToString(content),
		CreatedAt:   created,
		ExpiresAt:   created.AddDate(0, 0, 3),
	}
}

func sameCodeShare(a, b CodeShare) bool {
	return a.Slug == b.Slug && a.ID == b.ID && a.Code == b.Code &&
		a.Language == b.Language && a.PasswordHash == b.PasswordHash &&
		a.HasPassword == b.HasPassword &&
		a.CreatedAt.Equal(b.CreatedAt) && a.ExpiresAt.Equal(b.ExpiresAt)
}

func sameFileShare(a, b FileShare) bool {
	return a.Slug == b.Slug && a.ID == b.ID && a.Description == b.Description &&
		a.FileName == b.FileName && a.FileSize == b.FileSize &&
		a.MimeType == b.MimeType && a.Content == b.Content &&
		a.PasswordHash == b.PasswordHash && a.HasPassword == b.HasPassword &&
		a.CreatedAt.Equal(b.CreatedAt) && a.ExpiresAt.Equal(b.ExpiresAt)
}

// testStore runs the behaviour every store.Interface implementation must
// have.
func testStore(t *testing.T, s Interface) {
	t.Helper()
	ctx := context.Background()

	t.Run("code share round trip", func(t *testing.T) {
		cs := randomCodeShare()
		if err := s.SaveCodeShare(ctx, cs); err != nil {
			t.Fatalf("failed to save code share: %v", err)
		}
		got, err := s.CodeShare(ctx, cs.Slug)
		if err != nil {
			t.Fatalf("failed to get code share: %v", err)
		}
		if !sameCodeShare(cs, got) {
			t.Errorf("code share is different, want %+v, got %+v", cs, got)
		}
	})

	t.Run("code share not found", func(t *testing.T) {
		_, err := s.CodeShare(ctx, "does-not-exist-"+randomString(8))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected error to be [%v], got [%v]", ErrNotFound, err)
		}
	})

	t.Run("code share upsert", func(t *testing.T) {
		cs := randomCodeShare()
		if err := s.SaveCodeShare(ctx, cs); err != nil {
			t.Fatalf("failed to save code share: %v", err)
		}
		cs.Code = "updated"
		if err := s.SaveCodeShare(ctx, cs); err != nil {
			t.Fatalf("failed to update code share: %v", err)
		}
		got, err := s.CodeShare(ctx, cs.Slug)
		if err != nil {
			t.Fatalf("failed to get code share: %v", err)
		}
		if got.Code != "updated" {
			t.Errorf("expected code to be updated, got [%s]", got.Code)
		}
	})

	t.Run("code share delete", func(t *testing.T) {
		cs := randomCodeShare()
		if err := s.SaveCodeShare(ctx, cs); err != nil {
			t.Fatalf("failed to save code share: %v", err)
		}
		ok, err := s.DeleteCodeShare(ctx, cs.Slug)
		if err != nil || !ok {
			t.Fatalf("failed to delete code share: %v, %v", ok, err)
		}
		if _, err := s.CodeShare(ctx, cs.Slug); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected code share to be deleted, got [%v]", err)
		}
		ok, err = s.DeleteCodeShare(ctx, cs.Slug)
		if err != nil {
			t.Fatalf("unexpected error deleting a missing code share: %v", err)
		}
		if ok {
			t.Errorf("expected delete of a missing code share to return false")
		}
	})

	t.Run("code share list", func(t *testing.T) {
		want := map[string]bool{}
		for i := 0; i < 5; i++ {
			cs := randomCodeShare()
			if err := s.SaveCodeShare(ctx, cs); err != nil {
				t.Fatalf("failed to save code share: %v", err)
			}
			want[cs.Slug] = true
		}
		shares, err := s.CodeShares(ctx)
		if err != nil {
			t.Fatalf("failed to list code shares: %v", err)
		}
		for _, cs := range shares {
			delete(want, cs.Slug)
		}
		if len(want) != 0 {
			t.Errorf("expected all code shares to be listed, missing %v", want)
		}
	})

	t.Run("file share round trip", func(t *testing.T) {
		fs := randomFileShare()
		if err := s.SaveFileShare(ctx, fs); err != nil {
			t.Fatalf("failed to save file share: %v", err)
		}
		got, err := s.FileShare(ctx, fs.Slug)
		if err != nil {
			t.Fatalf("failed to get file share: %v", err)
		}
		if !sameFileShare(fs, got) {
			t.Errorf("file share is different, want %+v, got %+v", fs, got)
		}
	})

	t.Run("namespaces are independent", func(t *testing.T) {
		cs := randomCodeShare()
		if err := s.SaveCodeShare(ctx, cs); err != nil {
			t.Fatalf("failed to save code share: %v", err)
		}
		if _, err := s.FileShare(ctx, cs.Slug); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected code share to be invisible as a file share, got [%v]", err)
		}
		ok, err := s.DeleteFileShare(ctx, cs.Slug)
		if err != nil || ok {
			t.Errorf("expected file delete to leave code share alone, got %v, %v", ok, err)
		}
		if _, err := s.CodeShare(ctx, cs.Slug); err != nil {
			t.Errorf("expected code share to still exist, got [%v]", err)
		}
	})

	t.Run("file share delete and list", func(t *testing.T) {
		fs := randomFileShare()
		if err := s.SaveFileShare(ctx, fs); err != nil {
			t.Fatalf("failed to save file share: %v", err)
		}
		shares, err := s.FileShares(ctx)
		if err != nil {
			t.Fatalf("failed to list file shares: %v", err)
		}
		found := false
		for _, f := range shares {
			if f.Slug == fs.Slug {
				found = true
			}
		}
		if !found {
			t.Errorf("expected file share %s to be listed", fs.Slug)
		}
		ok, err := s.DeleteFileShare(ctx, fs.Slug)
		if err != nil || !ok {
			t.Fatalf("failed to delete file share: %v, %v", ok, err)
		}
		if _, err := s.FileShare(ctx, fs.Slug); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected file share to be deleted, got [%v]", err)
		}
	})
}

func TestCodeShareExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cs := CodeShare{ExpiresAt: now}
	if !cs.Expired(now) {
		t.Errorf("expected share expiring now to be expired")
	}
	if cs.Expired(now.Add(-time.Second)) {
		t.Errorf("expected share to be active a second before expiry")
	}
	fs := FileShare{ExpiresAt: now.Add(time.Minute)}
	if fs.Expired(now) {
		t.Errorf("expected file share to be active")
	}
}

func TestNewUnknownType(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Options{Type: "floppy"}, nil); err == nil {
		t.Errorf("expected unknown store type to fail")
	}
}

func TestNewMemory(t *testing.T) {
	t.Parallel()

	s, err := New(context.Background(), Options{Type: "memory"}, nil)
	if err != nil {
		t.Fatalf("failed to create memory store: %v", err)
	}
	if _, ok := s.(*MemDB); !ok {
		t.Errorf("expected *MemDB, got %T", s)
	}
}
