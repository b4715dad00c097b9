// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStaticCache(t *testing.T) {
	tests := []struct {
		name    string
		maxAge  time.Duration
		handler http.HandlerFunc
		want    string
	}{
		{
			name:   "implicit 200",
			maxAge: 24 * time.Hour,
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("body{}"))
			},
			want: "public, max-age=86400",
		},
		{
			name:   "explicit 304",
			maxAge: time.Hour,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotModified)
			},
			want: "public, max-age=3600",
		},
		{
			name:    "not found",
			maxAge:  7 * 24 * time.Hour,
			handler: http.NotFound,
			want:    "no-store",
		},
		{
			name:   "handler sets its own",
			maxAge: time.Hour,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Cache-Control", "private, no-store")
				w.WriteHeader(http.StatusOK)
			},
			want: "private, no-store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			StaticCache(tt.maxAge)(tt.handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/speakers/a.webp", nil))

			if got := rr.Header().Get("Cache-Control"); got != tt.want {
				t.Errorf("Cache-Control = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStaticCacheServesFiles(t *testing.T) {
	files := http.FileServer(http.Dir(t.TempDir()))
	rr := httptest.NewRecorder()
	StaticCache(time.Hour)(files).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing.css", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}
}
