// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/olegiv/thinkspace/internal/mailer"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/testutil"
)

type testEnv struct {
	db      *sql.DB
	q       *store.Queries
	uploads *UploadService
	hooks   *recordingSender
	mail    *recordingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return &testEnv{
		db:      db,
		q:       store.New(db),
		uploads: NewUploadService(t.TempDir(), testutil.TestLogger()),
		hooks:   &recordingSender{},
		mail:    &recordingMailer{},
	}
}

// recordingSender captures dispatched notifications.
type recordingSender struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (r *recordingSender) DispatchEvent(_ context.Context, eventType string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	r.data = append(r.data, data)
	return nil
}

func (r *recordingSender) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

func pngUpload(t *testing.T, name string, w, h int) *FileUpload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return &FileUpload{Filename: name, Reader: &buf}
}

func pdfUpload(name string) *FileUpload {
	return &FileUpload{Filename: name, Reader: bytes.NewReader([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"))}
}
