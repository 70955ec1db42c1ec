// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

// Package service provides methods to work with code and file shares.
// Methods of this package do not log or print out anything, they return
// errors instead. It is up to the user of the Service to handle the errors
// and provide useful information to the end user.
//
// Every method starts by sweeping expired shares from the store, so an
// expired share is never returned and its slug is free for reuse. There is
// no locking: two concurrent updates of the same share race and the last
// one wins.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iliafrenkel/go-share/src/password"
	"github.com/iliafrenkel/go-share/src/slug"
	"github.com/iliafrenkel/go-share/src/store"
)

// Share kinds, used in metrics.
const (
	KindCode = "code"
	KindFile = "file"
)

// Retention of each share kind.
const (
	CodeRetentionDays = 14
	FileRetentionDays = 3
)

// ErrValidation and other common errors. Every validation error wraps
// ErrValidation.
var (
	ErrValidation      = errors.New("invalid request")
	ErrConflict        = errors.New("title already in use")
	ErrNotFound        = errors.New("share not found")
	ErrUnauthorized    = errors.New("password is missing or incorrect")
	ErrForbidden       = errors.New("operation not permitted")
	ErrPayloadTooLarge = errors.New("file is too large")
	ErrInternal        = errors.New("internal error")

	ErrEmptySlug       = fmt.Errorf("%w: slug is empty", ErrValidation)
	ErrSlugLength      = fmt.Errorf("%w: slug must be between %d and %d characters", ErrValidation, slug.MinLength, slug.MaxLength)
	ErrEmptyCode       = fmt.Errorf("%w: code is empty", ErrValidation)
	ErrEmptyFileName   = fmt.Errorf("%w: file name is empty", ErrValidation)
	ErrEmptyContent    = fmt.Errorf("%w: file content is empty", ErrValidation)
	ErrBadContent      = fmt.Errorf("%w: file content is not valid base64", ErrValidation)
	ErrBadFileSize     = fmt.Errorf("%w: file size is negative", ErrValidation)
	ErrBadAction       = fmt.Errorf("%w: action must be 'download' or 'view'", ErrValidation)
	ErrPasswordTooLong = fmt.Errorf("%w: password must not be longer than %d bytes", ErrValidation, password.MaxLength)
)

// Clock abstracts time retrieval so that expiration is deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// Recorder receives share lifecycle events, see the metrics package.
type Recorder interface {
	ShareCreated(kind string)
	ShareDeleted(kind string)
	SharesExpired(kind string, n int)
	PasswordRejected(kind string)
}

type noopRecorder struct{}

func (noopRecorder) ShareCreated(string)       {}
func (noopRecorder) ShareDeleted(string)       {}
func (noopRecorder) SharesExpired(string, int) {}
func (noopRecorder) PasswordRejected(string)   {}

// Service type provides methods to work with shares.
type Service struct {
	store   store.Interface
	clock   Clock
	metrics Recorder
	sweeper *Sweeper
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the real clock, used in tests.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithRecorder sends share events to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// New returns new Service with provided store as a back-end storage.
func New(st store.Interface, opts ...Option) *Service {
	s := &Service{
		store:   st,
		clock:   RealClock{},
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sweeper = NewSweeper(s.store, s.clock, s.metrics)

	return s
}

// NewWithMemDB returns new Service with memory as a store.
func NewWithMemDB(opts ...Option) *Service {
	return New(store.NewMemDB(), opts...)
}

// sweep removes expired shares, it runs at the start of every operation.
func (s *Service) sweep(ctx context.Context, op string) error {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	return nil
}

// newSlug turns the title into a slug or generates a random one when the
// title is empty.
func newSlug(op, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return slug.Random(), nil
	}
	sl := slug.Slugify(title)
	if err := slug.Validate(sl); err != nil {
		return "", fmt.Errorf("%s: %w: (%v)", op, ErrSlugLength, err)
	}
	return sl, nil
}

// checkSlug rejects slugs that Slugify would never produce. No share can
// have such a slug, so it is reported as not found and never reaches the
// store.
func checkSlug(op, sl string) error {
	if sl == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptySlug)
	}
	if slug.Slugify(sl) != sl || slug.Validate(sl) != nil {
		return fmt.Errorf("%s: %w: malformed slug", op, ErrNotFound)
	}
	return nil
}

// slugTaken checks whether an active share of either kind uses the slug.
func (s *Service) slugTaken(ctx context.Context, op, sl string) (bool, error) {
	now := s.clock.Now()

	cs, err := s.store.CodeShare(ctx, sl)
	switch {
	case err == nil && !cs.Expired(now):
		return true, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return false, fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}

	fs, err := s.store.FileShare(ctx, sl)
	switch {
	case err == nil && !fs.Expired(now):
		return true, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return false, fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}

	return false, nil
}

// hashPassword hashes the password or returns password.NoPassword if it's
// empty.
func hashPassword(op, pwd string) (string, error) {
	if len(pwd) > password.MaxLength {
		return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}
	hash, err := password.Hash(pwd)
	if err != nil {
		return "", fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	return hash, nil
}

// checkPassword verifies pwd against the stored hash. Empty password is
// rejected right away.
func (s *Service) checkPassword(op, kind, pwd, hash string) error {
	if pwd == "" {
		s.metrics.PasswordRejected(kind)
		return fmt.Errorf("%s: %w: password is required", op, ErrUnauthorized)
	}
	ok, err := password.Verify(pwd, hash)
	if err != nil {
		return fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	if !ok {
		s.metrics.PasswordRejected(kind)
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

// SlugAvailability is the result of the SlugAvailable check.
type SlugAvailability struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
}

// SlugAvailable slugifies the candidate title and reports whether the slug
// is free among active code and file shares.
func (s *Service) SlugAvailable(ctx context.Context, candidate string) (SlugAvailability, error) {
	const op = "Service.SlugAvailable"
	if strings.TrimSpace(candidate) == "" {
		return SlugAvailability{}, fmt.Errorf("%s: %w", op, ErrEmptySlug)
	}
	sl := slug.Slugify(candidate)
	if err := slug.Validate(sl); err != nil {
		return SlugAvailability{}, fmt.Errorf("%s: %w: (%v)", op, ErrSlugLength, err)
	}
	if err := s.sweep(ctx, op); err != nil {
		return SlugAvailability{}, err
	}
	taken, err := s.slugTaken(ctx, op, sl)
	if err != nil {
		return SlugAvailability{}, err
	}
	return SlugAvailability{Slug: sl, Available: !taken}, nil
}
