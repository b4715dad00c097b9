// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripTrailingSlash(t *testing.T) {
	var seenPath string
	handler := StripTrailingSlash(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name         string
		method       string
		target       string
		wantCode     int
		wantLocation string
		wantPath     string
	}{
		{"root untouched", http.MethodGet, "/", http.StatusOK, "", "/"},
		{"no slash", http.MethodGet, "/blog", http.StatusOK, "", "/blog"},
		{"redirects get", http.MethodGet, "/blog/", http.StatusMovedPermanently, "/blog", ""},
		{"keeps query", http.MethodGet, "/webinars/?tab=past", http.StatusMovedPermanently, "/webinars?tab=past", ""},
		{"no open redirect", http.MethodGet, "//evil.example/", http.StatusMovedPermanently, "/evil.example", ""},
		{"post rewritten in place", http.MethodPost, "/webinars/intro/register/", http.StatusOK, "", "/webinars/intro/register"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenPath = ""
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if got := rr.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
			if seenPath != tt.wantPath {
				t.Errorf("handler saw %q, want %q", seenPath, tt.wantPath)
			}
		})
	}
}
