// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/thinkspace/internal/imaging"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/util"
)

// Upload errors. Handlers show them next to the file field.
var (
	ErrFileTooLarge = fmt.Errorf("file exceeds the %d MB limit", model.MaxUploadSize>>20)
	ErrFileType     = errors.New("this file type is not allowed here")
	ErrEmptyFile    = errors.New("the uploaded file is empty")
)

// FileUpload is a file received from a form.
type FileUpload struct {
	Filename string
	Reader   io.Reader
}

// UploadService stores uploaded files under the uploads directory.
// Stored paths are relative, slash-separated, and served under /uploads/.
type UploadService struct {
	dir    string
	logger *slog.Logger
}

// NewUploadService creates an UploadService rooted at dir.
func NewUploadService(dir string, logger *slog.Logger) *UploadService {
	return &UploadService{dir: dir, logger: logger}
}

// Dir returns the uploads root.
func (s *UploadService) Dir() string {
	return s.dir
}

// Save validates and stores f as kind, returning its relative path.
// Image kinds are re-encoded through the imaging processor.
func (s *UploadService) Save(kind string, f FileUpload) (string, error) {
	data, err := io.ReadAll(io.LimitReader(f.Reader, model.MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > model.MaxUploadSize {
		return "", ErrFileTooLarge
	}

	mimeType := sniffMimeType(data, f.Filename)
	if !model.IsAllowedType(kind, mimeType) {
		return "", ErrFileType
	}

	ext := extForMime(mimeType)
	if preset, ok := model.ImagePresets[kind]; ok {
		res, err := imaging.Process(data, preset)
		if err != nil {
			if errors.Is(err, imaging.ErrUnsupportedFormat) {
				return "", ErrFileType
			}
			return "", fmt.Errorf("processing image: %w", err)
		}
		data, ext = res.Data, res.Ext
	}

	rel := path.Join(kind, uuid.New().String()+ext)
	full, err := util.SafeJoin(s.dir, rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return rel, nil
}

// Remove deletes a stored file. Empty and already-missing paths are ignored.
func (s *UploadService) Remove(rel string) {
	if rel == "" {
		return
	}
	full, err := util.SafeJoin(s.dir, rel)
	if err != nil {
		s.logger.Warn("refusing to remove upload", "path", rel, "error", err)
		return
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove upload", "path", rel, "error", err)
	}
}

// Replace stores a new file when one was sent, removing old on success.
// With no new file it returns old, or "" when remove is set.
func (s *UploadService) Replace(kind string, f *FileUpload, old string, remove bool) (string, error) {
	if f == nil {
		if remove {
			s.Remove(old)
			return "", nil
		}
		return old, nil
	}
	rel, err := s.Save(kind, *f)
	if err != nil {
		return "", err
	}
	s.Remove(old)
	return rel, nil
}

// UploadUsage is the size of the uploads directory.
type UploadUsage struct {
	Files int64
	Bytes int64
}

// Usage walks the uploads directory. A missing directory counts as empty.
func (s *UploadService) Usage() (UploadUsage, error) {
	var u UploadUsage
	err := filepath.WalkDir(s.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		u.Files++
		u.Bytes += info.Size()
		return nil
	})
	return u, err
}

// sniffMimeType detects the type from content. Office documents sniff as
// zip archives, so their extension decides.
func sniffMimeType(data []byte, filename string) string {
	mimeType := imaging.DetectMimeType(data)
	if mimeType == model.MimeTypeZIP {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".docx":
			return model.MimeTypeDOCX
		case ".pptx":
			return model.MimeTypePPTX
		}
	}
	return mimeType
}

func extForMime(mimeType string) string {
	switch mimeType {
	case model.MimeTypeJPEG:
		return ".jpg"
	case model.MimeTypePNG:
		return ".png"
	case model.MimeTypeGIF:
		return ".gif"
	case model.MimeTypeWebP:
		return ".webp"
	case model.MimeTypePDF:
		return ".pdf"
	case model.MimeTypeZIP:
		return ".zip"
	case model.MimeTypeDOCX:
		return ".docx"
	case model.MimeTypePPTX:
		return ".pptx"
	default:
		return ""
	}
}
