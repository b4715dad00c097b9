// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/olegiv/thinkspace/internal/testutil"
)

const (
	patternCategories   = RouteDashboard + RouteCategories
	patternCategoryID   = patternCategories + "/{id}"
	patternCategoryEdit = patternCategoryID + "/edit"
	patternTags         = RouteDashboard + RouteTags
	patternTagID        = patternTags + "/{id}"
	patternTagEdit      = patternTagID + "/edit"
)

func TestCategoriesListAndForms(t *testing.T) {
	app := newTestApp(t)
	h := NewTaxonomyHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")
	cat := testutil.CreateCategory(t, app.q, "Engineering", "engineering")

	rec := app.serve(patternCategories, h.ListCategories, get(patternCategories), &staff)
	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "Engineering") {
		t.Error("list missing the category")
	}

	rec = app.serve(patternCategories+RouteSuffixNew, h.NewCategoryForm, get(patternCategories+RouteSuffixNew), &staff)
	assertStatus(t, rec.Code, http.StatusOK)

	rec = app.serve(patternCategoryEdit, h.EditCategoryForm, get(fmt.Sprintf("%s/%d/edit", patternCategories, cat.ID)), &staff)
	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `value="Engineering"`) {
		t.Error("edit form not populated")
	}

	for _, target := range []string{patternCategories + "/999/edit", patternCategories + "/abc/edit"} {
		rec = app.serve(patternCategoryEdit, h.EditCategoryForm, get(target), &staff)
		assertStatus(t, rec.Code, http.StatusNotFound)
	}
}

func TestCategoriesCreateUpdateDelete(t *testing.T) {
	app := newTestApp(t)
	h := NewTaxonomyHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")

	rec := app.serve(patternCategories, h.CreateCategory, postForm(patternCategories, url.Values{"name": {"  "}}), &staff)
	assertStatus(t, rec.Code, http.StatusUnprocessableEntity)

	rec = app.serve(patternCategories, h.CreateCategory, postForm(patternCategories, url.Values{
		"name":      {"Product News"},
		"is_active": {"true"},
	}), &staff)
	assertRedirect(t, rec, patternCategories)
	if n := app.countRows(t, "categories", "name = ? AND slug = ?", "Product News", "product-news"); n != 1 {
		t.Fatalf("created categories = %d; want 1", n)
	}

	// A taken slug gets a numeric suffix.
	rec = app.serve(patternCategories, h.CreateCategory, postForm(patternCategories, url.Values{
		"name": {"Other"},
		"slug": {"product-news"},
	}), &staff)
	assertRedirect(t, rec, patternCategories)
	if n := app.countRows(t, "categories", "name = ? AND slug = ?", "Other", "product-news-1"); n != 1 {
		t.Error("duplicate slug was not suffixed")
	}

	var id int64
	if err := app.db.QueryRow(`SELECT id FROM categories WHERE slug = ?`, "product-news").Scan(&id); err != nil {
		t.Fatal(err)
	}
	target := fmt.Sprintf("%s/%d", patternCategories, id)

	rec = app.serve(patternCategoryID, h.UpdateCategory, postForm(target, url.Values{
		"name":        {"Announcements"},
		"slug":        {"announcements"},
		"description": {"Company news"},
	}), &staff)
	assertRedirect(t, rec, patternCategories)
	if n := app.countRows(t, "categories", "id = ? AND name = ? AND slug = ?", id, "Announcements", "announcements"); n != 1 {
		t.Error("category not updated")
	}

	rec = app.serve(patternCategoryID, h.UpdateCategory, postForm(patternCategories+"/999", url.Values{"name": {"Ghost"}}), &staff)
	assertRedirect(t, rec, patternCategories+"/999/edit")

	rec = app.serve(patternCategoryID+"/delete", h.DeleteCategory, postForm(target+"/delete", nil), &staff)
	assertRedirect(t, rec, patternCategories)
	if n := app.countRows(t, "categories", "id = ?", id); n != 0 {
		t.Error("category not deleted")
	}
}

func TestTags(t *testing.T) {
	app := newTestApp(t)
	h := NewTaxonomyHandler(app.renderer, app.sm, app.svc)
	staff := app.staff(t, "staff@example.com")

	rec := app.serve(patternTags, h.CreateTag, postForm(patternTags, url.Values{"name": {"Golang"}}), &staff)
	assertRedirect(t, rec, patternTags)

	// Validation failures on the list page come back as a flash.
	rec = app.serve(patternTags, h.CreateTag, postForm(patternTags, url.Values{"name": {""}}), &staff)
	assertRedirect(t, rec, patternTags)

	rec = app.serve(patternTags, h.ListTags, get(patternTags), &staff)
	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "Golang") {
		t.Error("list missing the tag")
	}

	var id int64
	if err := app.db.QueryRow(`SELECT id FROM tags WHERE name = ?`, "Golang").Scan(&id); err != nil {
		t.Fatal(err)
	}
	target := fmt.Sprintf("%s/%d", patternTags, id)

	rec = app.serve(patternTagEdit, h.EditTagForm, get(target+"/edit"), &staff)
	assertStatus(t, rec.Code, http.StatusOK)

	rec = app.serve(patternTagEdit, h.EditTagForm, get(patternTags+"/999/edit"), &staff)
	assertStatus(t, rec.Code, http.StatusNotFound)

	rec = app.serve(patternTagID, h.UpdateTag, postForm(target, url.Values{"name": {""}}), &staff)
	assertStatus(t, rec.Code, http.StatusUnprocessableEntity)

	rec = app.serve(patternTagID, h.UpdateTag, postForm(target, url.Values{"name": {"Go"}, "slug": {"go"}}), &staff)
	assertRedirect(t, rec, patternTags)
	if n := app.countRows(t, "tags", "id = ? AND name = ?", id, "Go"); n != 1 {
		t.Error("tag not renamed")
	}

	rec = app.serve(patternTagID+"/delete", h.DeleteTag, postForm(target+"/delete", nil), &staff)
	assertRedirect(t, rec, patternTags)
	if n := app.countRows(t, "tags", "id = ?", id); n != 0 {
		t.Error("tag not deleted")
	}

	rec = app.serve(patternTagID+"/delete", h.DeleteTag, postForm(target+"/delete", nil), &staff)
	assertRedirect(t, rec, patternTags)
}
