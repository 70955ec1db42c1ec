package service

import (
	"context"
	"fmt"

	"github.com/iliafrenkel/go-share/src/store"
)

// Sweeper removes expired shares from the store.
type Sweeper struct {
	store   store.Interface
	clock   Clock
	metrics Recorder
}

// NewSweeper returns a Sweeper, nil clock and recorder get defaults.
func NewSweeper(st store.Interface, c Clock, r Recorder) *Sweeper {
	if c == nil {
		c = RealClock{}
	}
	if r == nil {
		r = noopRecorder{}
	}
	return &Sweeper{store: st, clock: c, metrics: r}
}

// Sweep deletes every share whose expiration time is at or before now and
// returns the number of deleted shares. Sweeping a clean store is a no-op.
func (sw *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := sw.clock.Now()

	codeShares, err := sw.store.CodeShares(ctx)
	if err != nil {
		return 0, fmt.Errorf("Sweeper.Sweep: %w", err)
	}
	var codeRemoved int
	for _, cs := range codeShares {
		if !cs.Expired(now) {
			continue
		}
		ok, err := sw.store.DeleteCodeShare(ctx, cs.Slug)
		if err != nil {
			return codeRemoved, fmt.Errorf("Sweeper.Sweep: %w", err)
		}
		if ok {
			codeRemoved++
		}
	}
	if codeRemoved > 0 {
		sw.metrics.SharesExpired(KindCode, codeRemoved)
	}

	fileShares, err := sw.store.FileShares(ctx)
	if err != nil {
		return codeRemoved, fmt.Errorf("Sweeper.Sweep: %w", err)
	}
	var fileRemoved int
	for _, fs := range fileShares {
		if !fs.Expired(now) {
			continue
		}
		ok, err := sw.store.DeleteFileShare(ctx, fs.Slug)
		if err != nil {
			return codeRemoved + fileRemoved, fmt.Errorf("Sweeper.Sweep: %w", err)
		}
		if ok {
			fileRemoved++
		}
	}
	if fileRemoved > 0 {
		sw.metrics.SharesExpired(KindFile, fileRemoved)
	}

	return codeRemoved + fileRemoved, nil
}
