// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliafrenkel/go-share/src/store"
)

// MaxFileSize is the largest file, in bytes, that can be shared.
const MaxFileSize = 10 * 1024 * 1024

// DefaultMimeType is used when a file is shared without a MIME type.
const DefaultMimeType = "application/octet-stream"

// File content actions.
const (
	ActionDownload = "download"
	ActionView     = "view"
)

// FileShareRequest is the input to CreateFileShare. Content is base64.
type FileShareRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	MimeType    string `json:"mimeType"`
	Content     string `json:"content"`
	Password    string `json:"password"`
}

// FileShareView is the public projection of a file share. It carries
// neither the password hash nor the content.
type FileShareView struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	MimeType    string    `json:"mimeType"`
	HasPassword bool      `json:"hasPassword"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// FileContent is a decoded file ready to be sent to the client. Content
// is base64 encoded when marshalled to JSON.
type FileContent struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Content  []byte `json:"content"`
}

// PublicFileShare converts a stored file share into its public view.
func PublicFileShare(fs store.FileShare) FileShareView {
	return FileShareView{
		ID:          fs.ID,
		Slug:        fs.Slug,
		Description: fs.Description,
		FileName:    fs.FileName,
		FileSize:    fs.FileSize,
		MimeType:    fs.MimeType,
		HasPassword: fs.HasPassword,
		CreatedAt:   fs.CreatedAt,
		ExpiresAt:   fs.ExpiresAt,
	}
}

func (s *Service) activeFileShare(ctx context.Context, op, sl string) (store.FileShare, error) {
	fs, err := s.store.FileShare(ctx, sl)
	if errors.Is(err, store.ErrNotFound) {
		return store.FileShare{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return store.FileShare{}, fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	if fs.Expired(s.clock.Now()) {
		return store.FileShare{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fs, nil
}

func decodeContent(op string, fs store.FileShare) (FileContent, error) {
	data, err := base64.StdEncoding.DecodeString(fs.Content)
	if err != nil {
		return FileContent{}, fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	return FileContent{FileName: fs.FileName, MimeType: fs.MimeType, Content: data}, nil
}

// CreateFileShare stores a new file share. The file must not be larger
// than MaxFileSize, both the declared size and the decoded content are
// checked.
func (s *Service) CreateFileShare(ctx context.Context, req FileShareRequest) (FileShareView, error) {
	const op = "Service.CreateFileShare"

	if strings.TrimSpace(req.FileName) == "" {
		return FileShareView{}, fmt.Errorf("%s: %w", op, ErrEmptyFileName)
	}
	if req.Content == "" {
		return FileShareView{}, fmt.Errorf("%s: %w", op, ErrEmptyContent)
	}
	if req.FileSize < 0 {
		return FileShareView{}, fmt.Errorf("%s: %w", op, ErrBadFileSize)
	}
	if req.FileSize > MaxFileSize || base64.StdEncoding.DecodedLen(len(req.Content)) > MaxFileSize+2 {
		return FileShareView{}, fmt.Errorf("%s: %w: limit is %d bytes", op, ErrPayloadTooLarge, MaxFileSize)
	}
	data, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return FileShareView{}, fmt.Errorf("%s: %w: (%v)", op, ErrBadContent, err)
	}
	if len(data) > MaxFileSize {
		return FileShareView{}, fmt.Errorf("%s: %w: limit is %d bytes", op, ErrPayloadTooLarge, MaxFileSize)
	}
	sl, err := newSlug(op, req.Title)
	if err != nil {
		return FileShareView{}, err
	}
	hash, err := hashPassword(op, req.Password)
	if err != nil {
		return FileShareView{}, err
	}
	if err := s.sweep(ctx, op); err != nil {
		return FileShareView{}, err
	}
	taken, err := s.slugTaken(ctx, op, sl)
	if err != nil {
		return FileShareView{}, err
	}
	if taken {
		return FileShareView{}, fmt.Errorf("%s: %w: %q", op, ErrConflict, sl)
	}

	mime := req.MimeType
	if mime == "" {
		mime = DefaultMimeType
	}
	now := s.clock.Now()
	fs := store.FileShare{
		ID:           newID(),
		Slug:         sl,
		Description:  req.Description,
		FileName:     req.FileName,
		FileSize:     int64(len(data)),
		MimeType:     mime,
		Content:      req.Content,
		PasswordHash: hash,
		HasPassword:  req.Password != "",
		CreatedAt:    now,
		ExpiresAt:    now.AddDate(0, 0, FileRetentionDays),
	}
	if err := s.store.SaveFileShare(ctx, fs); err != nil {
		return FileShareView{}, fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	s.metrics.ShareCreated(KindFile)

	return PublicFileShare(fs), nil
}

// FileShare returns the metadata of an active file share.
func (s *Service) FileShare(ctx context.Context, sl string) (FileShareView, error) {
	const op = "Service.FileShare"
	if err := checkSlug(op, sl); err != nil {
		return FileShareView{}, err
	}
	if err := s.sweep(ctx, op); err != nil {
		return FileShareView{}, err
	}
	fs, err := s.activeFileShare(ctx, op, sl)
	if err != nil {
		return FileShareView{}, err
	}
	return PublicFileShare(fs), nil
}

// FileContent returns the decoded content of a file share. Password
// protected files require the correct password.
func (s *Service) FileContent(ctx context.Context, sl, pwd, action string) (FileContent, error) {
	const op = "Service.FileContent"
	if action != ActionDownload && action != ActionView {
		return FileContent{}, fmt.Errorf("%s: %w", op, ErrBadAction)
	}
	if err := checkSlug(op, sl); err != nil {
		return FileContent{}, err
	}
	if err := s.sweep(ctx, op); err != nil {
		return FileContent{}, err
	}
	fs, err := s.activeFileShare(ctx, op, sl)
	if err != nil {
		return FileContent{}, err
	}
	if fs.HasPassword {
		if err := s.checkPassword(op, KindFile, pwd, fs.PasswordHash); err != nil {
			return FileContent{}, err
		}
	}
	return decodeContent(op, fs)
}

// DirectDownload returns the content of a file share that has no
// password. Protected files must go through FileContent.
func (s *Service) DirectDownload(ctx context.Context, sl string) (FileContent, error) {
	const op = "Service.DirectDownload"
	if err := checkSlug(op, sl); err != nil {
		return FileContent{}, err
	}
	if err := s.sweep(ctx, op); err != nil {
		return FileContent{}, err
	}
	fs, err := s.activeFileShare(ctx, op, sl)
	if err != nil {
		return FileContent{}, err
	}
	if fs.HasPassword {
		return FileContent{}, fmt.Errorf("%s: %w: file is password protected", op, ErrForbidden)
	}
	return decodeContent(op, fs)
}

// DeleteFileShare removes a file share, the password is mandatory.
func (s *Service) DeleteFileShare(ctx context.Context, sl, pwd string) error {
	const op = "Service.DeleteFileShare"
	if err := checkSlug(op, sl); err != nil {
		return err
	}
	if err := s.sweep(ctx, op); err != nil {
		return err
	}
	fs, err := s.activeFileShare(ctx, op, sl)
	if err != nil {
		return err
	}
	if err := s.checkPassword(op, KindFile, pwd, fs.PasswordHash); err != nil {
		return err
	}
	if _, err := s.store.DeleteFileShare(ctx, sl); err != nil {
		return fmt.Errorf("%s: %w: (%v)", op, ErrInternal, err)
	}
	s.metrics.ShareDeleted(KindFile)

	return nil
}
