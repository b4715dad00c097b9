// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/form/v4"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/service"
)

// maxFormMemory is held in memory before multipart parts spill to disk.
const maxFormMemory = 8 << 20

// maxBodySize caps request bodies: one upload plus the text fields.
const maxBodySize = model.MaxUploadSize + 1<<20

var formDecoder = form.NewDecoder()

// errInvalidForm is returned when the body cannot be parsed or decoded.
var errInvalidForm = errors.New("invalid form data")

// decodeForm parses a urlencoded or multipart body into dst using the
// `form` struct tags. Unchecked checkboxes decode as false.
func decodeForm(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return service.ErrFileTooLarge
			}
			return fmt.Errorf("%w: %v", errInvalidForm, err)
		}
	} else if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", errInvalidForm, err)
	}
	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("%w: %v", errInvalidForm, err)
	}
	return nil
}

// uploadedFile is a multipart file ready to hand to a service.
type uploadedFile struct {
	file multipart.File
	*service.FileUpload
}

// Close releases the underlying part. Safe on nil.
func (u *uploadedFile) Close() {
	if u != nil && u.file != nil {
		_ = u.file.Close()
	}
}

// Upload returns the service view of the file, or nil when none was sent.
func (u *uploadedFile) Upload() *service.FileUpload {
	if u == nil {
		return nil
	}
	return u.FileUpload
}

// formFile returns the named file part, or nil when the field is absent or
// empty. decodeForm must have parsed the request first.
func formFile(r *http.Request, field string) (*uploadedFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}
	if header.Size == 0 || header.Filename == "" {
		_ = file.Close()
		return nil, nil
	}
	return &uploadedFile{
		file:       file,
		FileUpload: &service.FileUpload{Filename: header.Filename, Reader: io.LimitReader(file, model.MaxUploadSize+1)},
	}, nil
}
