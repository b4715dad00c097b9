// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/testutil"
)

func TestAddResourceSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewResourceService(env.db, env.uploads, testutil.TestLogger())
	w := testutil.CreateWebinar(t, env.q, "intro", testutil.Now().AddDate(0, 0, 2), 10, 0)

	tests := []struct {
		name string
		url  string
		file *FileUpload
	}{
		{"neither", "", nil},
		{"both", "https://example.com/slides", pdfUpload("slides.pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, w.ID, model.ResourceForm{Title: "Slides", ResourceType: "slides", URL: tt.url}, tt.file)
			assert.ErrorIs(t, err, model.ErrResourceSource)
		})
	}

	list, err := svc.List(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddResource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewResourceService(env.db, env.uploads, testutil.TestLogger())
	w := testutil.CreateWebinar(t, env.q, "intro", testutil.Now().AddDate(0, 0, 2), 10, 0)

	link, err := svc.Add(ctx, w.ID, model.ResourceForm{Title: "Recording", ResourceType: "video", URL: "https://video.example.com/42"}, nil)
	require.NoError(t, err)
	assert.Empty(t, link.FilePath)
	assert.Equal(t, int64(0), link.Position)

	doc, err := svc.Add(ctx, w.ID, model.ResourceForm{Title: "Handout", ResourceType: "document", IsPreview: true}, pdfUpload("handout.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, doc.FilePath)
	assert.Equal(t, int64(1), doc.Position)
	assert.True(t, doc.IsPreview)
	assert.FileExists(t, filepath.Join(env.uploads.Dir(), doc.FilePath))

	list, err := svc.List(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Recording", list[0].Title)
	assert.Equal(t, "Handout", list[1].Title)

	_, err = svc.Add(ctx, w.ID, model.ResourceForm{Title: "Bad", ResourceType: "podcast", URL: "https://example.com"}, nil)
	var verrs model.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("resource_type"))

	_, err = svc.Add(ctx, w.ID+100, model.ResourceForm{Title: "Orphan", ResourceType: "link", URL: "https://example.com"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteResource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewResourceService(env.db, env.uploads, testutil.TestLogger())
	w := testutil.CreateWebinar(t, env.q, "intro", testutil.Now().AddDate(0, 0, 2), 10, 0)
	other := testutil.CreateWebinar(t, env.q, "other", testutil.Now().AddDate(0, 0, 2), 10, 0)

	doc, err := svc.Add(ctx, w.ID, model.ResourceForm{Title: "Handout", ResourceType: "document"}, pdfUpload("handout.pdf"))
	require.NoError(t, err)
	file := filepath.Join(env.uploads.Dir(), doc.FilePath)

	// A resource is only reachable through its own webinar.
	assert.ErrorIs(t, svc.Delete(ctx, other.ID, doc.ID), ErrNotFound)
	assert.FileExists(t, file)

	require.NoError(t, svc.Delete(ctx, w.ID, doc.ID))
	assert.NoFileExists(t, file)
	assert.ErrorIs(t, svc.Delete(ctx, w.ID, doc.ID), ErrNotFound)
}
