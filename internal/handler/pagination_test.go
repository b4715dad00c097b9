// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestParsePageParam(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"valid page", "page=3", 3},
		{"no param", "", 1},
		{"empty param", "page=", 1},
		{"invalid param", "page=abc", 1},
		{"zero page", "page=0", 1},
		{"negative page", "page=-1", 1},
		{"large page", "page=999", 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			if got := ParsePageParam(req); got != tt.want {
				t.Errorf("ParsePageParam() with query %q = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseQueryInt64(t *testing.T) {
	tests := []struct {
		query string
		want  int64
	}{
		{"category=4", 4},
		{"category=", 0},
		{"category=-2", 0},
		{"category=x", 0},
		{"", 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := ParseQueryInt64(req, "category"); got != tt.want {
			t.Errorf("ParseQueryInt64(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    int64
		wantErr bool
	}{
		{"valid id", "123", 123, false},
		{"large id", "9999999999", 9999999999, false},
		{"empty id", "", 0, true},
		{"invalid id", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			got, err := ParseIDParam(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseIDParam() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseIDParam() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildPagination(t *testing.T) {
	tests := []struct {
		name        string
		currentPage int
		totalItems  int
		perPage     int
		wantPage    int
		wantPages   int
		wantHasPrev bool
		wantHasNext bool
	}{
		{"first page", 1, 50, 10, 1, 5, false, true},
		{"middle page", 3, 50, 10, 3, 5, true, true},
		{"last page", 5, 50, 10, 5, 5, true, false},
		{"past the end", 9, 50, 10, 5, 5, true, false},
		{"single page", 1, 5, 10, 1, 1, false, false},
		{"empty", 1, 0, 10, 1, 1, false, false},
		{"page zero", 0, 50, 10, 1, 5, false, true},
		{"one item over", 1, 11, 10, 1, 2, false, true},
		{"zero per page", 2, 10, 0, 1, 1, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildPagination(tt.currentPage, tt.totalItems, tt.perPage, "/dashboard/blogs", nil)

			if p.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tt.wantPages)
			}
			if p.CurrentPage != tt.wantPage {
				t.Errorf("CurrentPage = %d, want %d", p.CurrentPage, tt.wantPage)
			}
			if p.HasPrev != tt.wantHasPrev {
				t.Errorf("HasPrev = %v, want %v", p.HasPrev, tt.wantHasPrev)
			}
			if p.HasNext != tt.wantHasNext {
				t.Errorf("HasNext = %v, want %v", p.HasNext, tt.wantHasNext)
			}
		})
	}
}

func TestBuildPaginationKeepsFilters(t *testing.T) {
	params := url.Values{
		"status": []string{"draft"},
		"q":      []string{"go"},
		"empty":  []string{""},
		"page":   []string{"2"},
	}

	p := BuildPagination(2, 50, 10, "/dashboard/blogs", params)

	if p.QueryString != "q=go&status=draft" {
		t.Errorf("QueryString = %q", p.QueryString)
	}
	if got := p.NextURL(); got != "/dashboard/blogs?q=go&status=draft&page=3" {
		t.Errorf("NextURL() = %q", got)
	}
	if strings.Contains(p.QueryString, "page=") {
		t.Error("page parameter should be dropped from QueryString")
	}
}

func TestBuildPaginationEllipsis(t *testing.T) {
	p := BuildPagination(10, 200, 10, "/dashboard/users", nil)

	var numbers []int
	ellipses := 0
	for _, pg := range p.Pages {
		if pg.IsEllipsis {
			ellipses++
			continue
		}
		numbers = append(numbers, pg.Number)
	}
	want := []int{1, 8, 9, 10, 11, 12, 20}
	if len(numbers) != len(want) {
		t.Fatalf("pages = %v, want %v", numbers, want)
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Fatalf("pages = %v, want %v", numbers, want)
		}
	}
	if ellipses != 2 {
		t.Errorf("ellipses = %d, want 2", ellipses)
	}
	if p.PageRange() != "91-100" {
		t.Errorf("PageRange() = %q", p.PageRange())
	}
}
