// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliafrenkel/go-share/src/store"
)

// DefaultLanguage is used when a code share is created without a language.
const DefaultLanguage = "plaintext"

// CodeShareRequest is the input to CreateCodeShare.
type CodeShareRequest struct {
	Title    string `json:"title"`
	Code     string `json:"code"`
	Language string `json:"language"`
	Password string `json:"password"`
}

// CodeShareUpdate is the input to UpdateCodeShare.
type CodeShareUpdate struct {
	Slug     string `json:"slug"`
	Code     string `json:"code"`
	Language string `json:"language"`
	Password string `json:"password"`
}

// CodeShareView is the public projection of a code share, it never
// carries the password hash.
type CodeShareView struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	HasPassword bool      `json:"hasPassword"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// PublicCodeShare converts a stored code share into its public view.
func PublicCodeShare(cs store.CodeShare) CodeShareView {
	return CodeShareView{
		ID:          cs.ID,
		Slug:        cs.Slug,
		Code:        cs.Code,
		Language:    cs.Language,
		HasPassword: cs.HasPassword,
		CreatedAt:   cs.CreatedAt,
		ExpiresAt:   cs.ExpiresAt,
	}
}

// activeCodeShare returns a code share that exists and did not expire.
func (s *Service) activeCodeShare(ctx context.Context, op, sl string) (store.CodeShare, error) {
	cs, err := s.store.CodeShare(ctx, sl)
	if errors.Is(err, store.ErrNotFound) {
		return store.CodeShare{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return store.CodeShare{}, fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	if cs.Expired(s.clock.Now()) {
		return store.CodeShare{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return cs, nil
}

// CreateCodeShare stores a new code share. The slug comes from the title
// or is random if there is no title. An optional password is stored as a
// bcrypt hash.
func (s *Service) CreateCodeShare(ctx context.Context, req CodeShareRequest) (CodeShareView, error) {
	const op = "Service.CreateCodeShare"

	if req.Code == "" {
		return CodeShareView{}, fmt.Errorf("%s: %w", op, ErrEmptyCode)
	}
	sl, err := newSlug(op, req.Title)
	if err != nil {
		return CodeShareView{}, err
	}
	hash, err := hashPassword(op, req.Password)
	if err != nil {
		return CodeShareView{}, err
	}
	if err := s.sweep(ctx, op); err != nil {
		return CodeShareView{}, err
	}
	taken, err := s.slugTaken(ctx, op, sl)
	if err != nil {
		return CodeShareView{}, err
	}
	if taken {
		return CodeShareView{}, fmt.Errorf("%s: %w: %q", op, ErrConflict, sl)
	}

	lang := req.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	now := s.clock.Now()
	cs := store.CodeShare{
		ID:           newID(),
		Slug:         sl,
		Code:         req.Code,
		Language:     lang,
		PasswordHash: hash,
		HasPassword:  req.Password != "",
		CreatedAt:    now,
		ExpiresAt:    now.AddDate(0, 0, CodeRetentionDays),
	}
	if err := s.store.SaveCodeShare(ctx, cs); err != nil {
		return CodeShareView{}, fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	s.metrics.ShareCreated(KindCode)

	return PublicCodeShare(cs), nil
}

// CodeShare returns an active code share by its slug. Reading never
// requires a password.
func (s *Service) CodeShare(ctx context.Context, sl string) (CodeShareView, error) {
	const op = "Service.CodeShare"
	if err := checkSlug(op, sl); err != nil {
		return CodeShareView{}, err
	}
	if err := s.sweep(ctx, op); err != nil {
		return CodeShareView{}, err
	}
	cs, err := s.activeCodeShare(ctx, op, sl)
	if err != nil {
		return CodeShareView{}, err
	}
	return PublicCodeShare(cs), nil
}

// UpdateCodeShare replaces the code, and the language if given, of a
// password protected code share. Shares without a password cannot be
// edited.
func (s *Service) UpdateCodeShare(ctx context.Context, req CodeShareUpdate) (CodeShareView, error) {
	const op = "Service.UpdateCodeShare"

	if err := checkSlug(op, req.Slug); err != nil {
		return CodeShareView{}, err
	}
	if req.Code == "" {
		return CodeShareView{}, fmt.Errorf("%s: %w", op, ErrEmptyCode)
	}
	if err := s.sweep(ctx, op); err != nil {
		return CodeShareView{}, err
	}
	cs, err := s.activeCodeShare(ctx, op, req.Slug)
	if err != nil {
		return CodeShareView{}, err
	}
	if !cs.HasPassword {
		return CodeShareView{}, fmt.Errorf("%s: %w: share has no password", op, ErrForbidden)
	}
	if err := s.checkPassword(op, KindCode, req.Password, cs.PasswordHash); err != nil {
		return CodeShareView{}, err
	}

	cs.Code = req.Code
	if req.Language != "" {
		cs.Language = req.Language
	}
	if err := s.store.SaveCodeShare(ctx, cs); err != nil {
		return CodeShareView{}, fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}

	return PublicCodeShare(cs), nil
}

// AuthorizeCodeShare checks the password of a code share without changing
// anything. It is used by clients before switching into edit mode.
func (s *Service) AuthorizeCodeShare(ctx context.Context, sl, pwd string) error {
	const op = "Service.AuthorizeCodeShare"
	if err := checkSlug(op, sl); err != nil {
		return err
	}
	if err := s.sweep(ctx, op); err != nil {
		return err
	}
	cs, err := s.activeCodeShare(ctx, op, sl)
	if err != nil {
		return err
	}
	if !cs.HasPassword {
		return fmt.Errorf("%s: %w: share has no password", op, ErrForbidden)
	}
	return s.checkPassword(op, KindCode, pwd, cs.PasswordHash)
}

// DeleteCodeShare removes a code share. The password is mandatory, so a
// share created without one can only go away by expiring.
func (s *Service) DeleteCodeShare(ctx context.Context, sl, pwd string) error {
	const op = "Service.DeleteCodeShare"
	if err := checkSlug(op, sl); err != nil {
		return err
	}
	if err := s.sweep(ctx, op); err != nil {
		return err
	}
	cs, err := s.activeCodeShare(ctx, op, sl)
	if err != nil {
		return err
	}
	if err := s.checkPassword(op, KindCode, pwd, cs.PasswordHash); err != nil {
		return err
	}
	if _, err := s.store.DeleteCodeShare(ctx, sl); err != nil {
		return fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	s.metrics.ShareDeleted(KindCode)

	return nil
}
