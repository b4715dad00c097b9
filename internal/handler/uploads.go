// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/olegiv/thinkspace/internal/model"
)

// UploadsHandler serves files under the uploads directory at /uploads/.
// Payment proofs and directory listings are never served.
type UploadsHandler struct {
	files http.Handler
	dir   http.Dir
}

// NewUploadsHandler creates an UploadsHandler rooted at dir.
func NewUploadsHandler(dir string) *UploadsHandler {
	return &UploadsHandler{
		files: http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir))),
		dir:   http.Dir(dir),
	}
}

func (h *UploadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := path.Clean("/" + strings.TrimPrefix(r.URL.Path, "/uploads/"))
	if rel == "/" || strings.HasPrefix(rel, "/"+model.UploadPaymentProof+"/") || rel == "/"+model.UploadPaymentProof {
		http.NotFound(w, r)
		return
	}

	f, err := h.dir.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := f.Stat()
	_ = f.Close()
	if err != nil || info.IsDir() || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	h.files.ServeHTTP(w, r)
}
