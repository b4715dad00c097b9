// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/testutil"
)

func newSpeakerService(env *testEnv) *SpeakerService {
	return NewSpeakerService(env.db, env.uploads, nil, testutil.TestLogger())
}

func TestSaveSpeaker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newSpeakerService(env)

	sp, err := svc.Save(ctx, 0, model.SpeakerForm{
		Name:     "Ada Lovelace",
		Title:    "Analyst",
		Twitter:  " @ada ",
		Email:    "Ada@Example.COM",
		IsActive: true,
	}, pngUpload(t, "ada.png", 64, 64), false)
	require.NoError(t, err)

	assert.Equal(t, "ada-lovelace", sp.Slug)
	assert.Equal(t, "ada", sp.Twitter)
	assert.Equal(t, "ada@example.com", sp.Email)
	require.NotEmpty(t, sp.Photo)
	photo := filepath.Join(env.uploads.Dir(), sp.Photo)
	assert.FileExists(t, photo)

	updated, err := svc.Save(ctx, sp.ID, model.SpeakerForm{Name: "Ada King", IsActive: true}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "ada-lovelace", updated.Slug)
	assert.Empty(t, updated.Photo)
	assert.NoFileExists(t, photo)
}

func TestSaveSpeakerValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newSpeakerService(env)

	_, err := svc.Save(context.Background(), 0, model.SpeakerForm{Name: "Grace", Email: "not-an-email", Website: "nope"}, nil, false)
	var verrs model.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("email"))
	assert.True(t, verrs.Has("website"))

	_, err = svc.Save(context.Background(), 0, model.SpeakerForm{Name: "Grace"}, pdfUpload("cv.pdf"), false)
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("photo"))

	_, err = svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSpeakers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newSpeakerService(env)

	ada, err := svc.Save(ctx, 0, model.SpeakerForm{Name: "Ada Lovelace", Title: "Analyst", IsActive: true}, nil, false)
	require.NoError(t, err)
	_, err = svc.Save(ctx, 0, model.SpeakerForm{Name: "Charles Babbage", Title: "Engineer"}, nil, false)
	require.NoError(t, err)

	for _, slug := range []string{"engines", "notes"} {
		w := testutil.CreateWebinar(t, env.q, slug, testutil.Now().AddDate(0, 0, 3), 10, 0)
		require.NoError(t, env.q.AddWebinarSpeaker(ctx, store.WebinarSpeakerParams{WebinarID: w.ID, SpeakerID: ada.ID}))
	}

	all, err := svc.List(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ada Lovelace", all[0].Name)
	assert.Equal(t, int64(2), all[0].WebinarCount)
	assert.Equal(t, int64(0), all[1].WebinarCount)

	byTitle, err := svc.List(ctx, "engineer", false)
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Charles Babbage", byTitle[0].Name)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ada.ID, active[0].ID)
}

func TestDeleteSpeaker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newSpeakerService(env)

	sp, err := svc.Save(ctx, 0, model.SpeakerForm{Name: "Ada", IsActive: true}, pngUpload(t, "ada.png", 32, 32), false)
	require.NoError(t, err)
	w := testutil.CreateWebinar(t, env.q, "engines", testutil.Now().AddDate(0, 0, 3), 10, 0)
	require.NoError(t, env.q.AddWebinarSpeaker(ctx, store.WebinarSpeakerParams{WebinarID: w.ID, SpeakerID: sp.ID}))

	require.NoError(t, svc.Delete(ctx, sp.ID))

	_, err = os.Stat(filepath.Join(env.uploads.Dir(), sp.Photo))
	assert.True(t, os.IsNotExist(err))
	speakers, err := env.q.ListSpeakersForWebinar(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, speakers)
	assert.ErrorIs(t, svc.Delete(ctx, sp.ID), ErrNotFound)
}
