// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-pkgz/rest"
	"github.com/iliafrenkel/go-share/src/service"
)

// DefaultMaxBodySize leaves room for a base64 encoded file of
// service.MaxFileSize bytes plus the rest of the JSON request.
const DefaultMaxBodySize = 15 * 1024 * 1024

// slugPassword is the body of the delete and auth requests.
type slugPassword struct {
	Slug     string `json:"slug"`
	Password string `json:"password"`
}

// fileContentRequest is the body of the PUT /shares/file request.
type fileContentRequest struct {
	Slug     string `json:"slug"`
	Password string `json:"password"`
	Action   string `json:"action"`
}

// errorResponses maps service errors to a status code and a message that
// is safe to send to the client. The first match wins so the more specific
// errors go first.
var errorResponses = []struct {
	err  error
	code int
	msg  string
}{
	{service.ErrEmptySlug, http.StatusBadRequest, "Slug must not be empty"},
	{service.ErrSlugLength, http.StatusBadRequest, "Title must produce a slug between 3 and 50 characters long"},
	{service.ErrEmptyCode, http.StatusBadRequest, "Code must not be empty"},
	{service.ErrEmptyFileName, http.StatusBadRequest, "File name must not be empty"},
	{service.ErrEmptyContent, http.StatusBadRequest, "File content must not be empty"},
	{service.ErrBadContent, http.StatusBadRequest, "File content must be base64 encoded"},
	{service.ErrBadFileSize, http.StatusBadRequest, "File size must not be negative"},
	{service.ErrBadAction, http.StatusBadRequest, "Action must be either 'download' or 'view'"},
	{service.ErrPasswordTooLong, http.StatusBadRequest, "Password must not be longer than 72 bytes"},
	{service.ErrValidation, http.StatusBadRequest, "Invalid request"},
	{service.ErrPayloadTooLarge, http.StatusBadRequest, "File must not be larger than 10 MiB"},
	{service.ErrConflict, http.StatusConflict, "Title already in use"},
	{service.ErrNotFound, http.StatusNotFound, "Share not found"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "Password is missing or incorrect"},
	{service.ErrForbidden, http.StatusForbidden, "This operation is not permitted for this share"},
}

// sendError responds with the status code and message that correspond to
// the error. Anything unknown is an internal error and its details only go
// to the log.
func (h *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorResponses {
		if errors.Is(err, e.err) {
			rest.SendErrorJSON(w, r, h.log, e.code, err, e.msg)
			return
		}
	}
	rest.SendErrorJSON(w, r, h.log, http.StatusInternalServerError, err, "Internal server error")
}

// renderCreated responds with 201 Created and data as JSON.
func renderCreated(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	rest.RenderJSON(w, data)
}

// decodeJSON checks that the incoming JSON payload arrived with the correct
// content type and can be properly decoded into data. Absent fields get
// default values, extra fields generate an error. Only one object is
// expected, multiple JSON objects in the body result in an error. Body size
// is limited to Options.MaxBodySize. On failure decodeJSON sends the error
// response and returns false.
func (h *Server) decodeJSON(w http.ResponseWriter, r *http.Request, data interface{}) bool {
	if hdr := r.Header.Get("Content-Type"); hdr != "" {
		mt, _, err := mime.ParseMediaType(hdr)
		if err != nil || mt != "application/json" {
			rest.SendErrorJSON(w, r, h.log, http.StatusUnsupportedMediaType, fmt.Errorf("content type %q", hdr),
				fmt.Sprintf("Incorrect Content-Type header [%s], expect [application/json]", hdr))
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.options.MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(data); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError
		var msg string
		switch {
		case errors.As(err, &syntaxError):
			msg = fmt.Sprintf("Request body contains malformed JSON (at position %d)", syntaxError.Offset)
		// Decode may return io.ErrUnexpectedEOF for syntax errors,
		// see https://github.com/golang/go/issues/25956.
		case errors.Is(err, io.ErrUnexpectedEOF):
			msg = "Request body contains malformed JSON"
		case errors.As(err, &unmarshalTypeError):
			msg = fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)",
				unmarshalTypeError.Field, unmarshalTypeError.Offset)
		// See https://github.com/golang/go/issues/29035.
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			msg = fmt.Sprintf("Request body contains unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.Is(err, io.EOF):
			msg = "Request body must not be empty"
		case errors.As(err, &maxBytesError):
			msg = fmt.Sprintf("Request body must not be larger than %d bytes", h.options.MaxBodySize)
		default:
			rest.SendErrorJSON(w, r, h.log, http.StatusInternalServerError, err, "Internal server error")
			return false
		}
		rest.SendErrorJSON(w, r, h.log, http.StatusBadRequest, err, msg)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		rest.SendErrorJSON(w, r, h.log, http.StatusBadRequest, errors.New("extra data after JSON object"),
			"Request body must only contain a single JSON object")
		return false
	}

	return true
}

// handlePostCodeShare creates a new code share, POST /shares/code.
func (h *Server) handlePostCodeShare(w http.ResponseWriter, r *http.Request) {
	var req service.CodeShareRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	cs, err := h.service.CreateCodeShare(r.Context(), req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.log.Logf("DEBUG created code share %q", cs.Slug)
	renderCreated(w, cs)
}

// handleGetCodeShare returns a code share, GET /shares/code?slug=.
func (h *Server) handleGetCodeShare(w http.ResponseWriter, r *http.Request) {
	cs, err := h.service.CodeShare(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	rest.RenderJSON(w, cs)
}

// handlePutCodeShare updates a password protected code share.
func (h *Server) handlePutCodeShare(w http.ResponseWriter, r *http.Request) {
	var req service.CodeShareUpdate
	if !h.decodeJSON(w, r, &req) {
		return
	}
	cs, err := h.service.UpdateCodeShare(r.Context(), req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	rest.RenderJSON(w, cs)
}

// handleAuthCodeShare checks the password before the client allows
// editing, POST /shares/code/auth.
func (h *Server) handleAuthCodeShare(w http.ResponseWriter, r *http.Request) {
	var req slugPassword
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.AuthorizeCodeShare(r.Context(), req.Slug, req.Password); err != nil {
		h.sendError(w, r, err)
		return
	}
	rest.RenderJSON(w, rest.JSON{"success": true})
}

func (h *Server) handleDeleteCodeShare(w http.ResponseWriter, r *http.Request) {
	var req slugPassword
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.DeleteCodeShare(r.Context(), req.Slug, req.Password); err != nil {
		h.sendError(w, r, err)
		return
	}
	h.log.Logf("DEBUG deleted code share %q", req.Slug)
	rest.RenderJSON(w, rest.JSON{"message": "Code share deleted successfully"})
}

// handlePostFileShare creates a new file share, POST /shares/file.
func (h *Server) handlePostFileShare(w http.ResponseWriter, r *http.Request) {
	var req service.FileShareRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	fs, err := h.service.CreateFileShare(r.Context(), req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.log.Logf("DEBUG created file share %q (%d bytes)", fs.Slug, fs.FileSize)
	renderCreated(w, fs)
}

// handleGetFileShare returns file share metadata without the content.
func (h *Server) handleGetFileShare(w http.ResponseWriter, r *http.Request) {
	fs, err := h.service.FileShare(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	rest.RenderJSON(w, fs)
}

// handlePutFileShare returns the file content as base64 after checking
// the password, PUT /shares/file.
func (h *Server) handlePutFileShare(w http.ResponseWriter, r *http.Request) {
	var req fileContentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	fc, err := h.service.FileContent(r.Context(), req.Slug, req.Password, req.Action)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	rest.RenderJSON(w, fc)
}

func (h *Server) handleDeleteFileShare(w http.ResponseWriter, r *http.Request) {
	var req slugPassword
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.DeleteFileShare(r.Context(), req.Slug, req.Password); err != nil {
		h.sendError(w, r, err)
		return
	}
	h.log.Logf("DEBUG deleted file share %q", req.Slug)
	rest.RenderJSON(w, rest.JSON{"message": "File share deleted successfully"})
}

// handleDownloadFile sends the raw file as an attachment. Only files
// without a password can be downloaded this way.
func (h *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	fc, err := h.service.DirectDownload(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", fc.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fc.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(fc.Content)))
	if _, err := w.Write(fc.Content); err != nil {
		h.log.Logf("ERROR handleDownloadFile: failed to write: %v", err)
	}
}

// handleSlugAvailability checks if a title is free to use,
// GET /slug-availability?candidate=.
func (h *Server) handleSlugAvailability(w http.ResponseWriter, r *http.Request) {
	av, err := h.service.SlugAvailable(r.Context(), r.URL.Query().Get("candidate"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	rest.RenderJSON(w, av)
}

func (h *Server) notFound(w http.ResponseWriter, r *http.Request) {
	rest.SendErrorJSON(w, r, h.log, http.StatusNotFound, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path), "Not found")
}

func (h *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rest.SendErrorJSON(w, r, h.log, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed for %s", r.Method, r.URL.Path), "Method not allowed")
}
