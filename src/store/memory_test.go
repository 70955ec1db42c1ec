package store

import (
	"context"
	"testing"
	"time"
)

func TestMemDB(t *testing.T) {
	testStore(t, mdb)
}

// TestMemDBListSorted checks that shares are listed oldest first.
func TestMemDBListSorted(t *testing.T) {
	t.Parallel()

	// Dedicated store so other tests don't interfere.
	m := NewMemDB()
	ctx := context.Background()
	base := time.Now()
	for i := 5; i > 0; i-- {
		cs := randomCodeShare()
		cs.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := m.SaveCodeShare(ctx, cs); err != nil {
			t.Fatalf("failed to save code share: %v", err)
		}
	}
	shares, err := m.CodeShares(ctx)
	if err != nil {
		t.Fatalf("failed to list code shares: %v", err)
	}
	if len(shares) != 5 {
		t.Fatalf("expected 5 shares, got %d", len(shares))
	}
	for i := 1; i < len(shares); i++ {
		if shares[i].CreatedAt.Before(shares[i-1].CreatedAt) {
			t.Errorf("expected shares to be sorted by creation time")
		}
	}
}
