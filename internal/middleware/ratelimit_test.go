// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func postFrom(handler http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodPost, "/webinars/intro/register", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Code
}

func TestGlobalRateLimiter(t *testing.T) {
	rl := NewGlobalRateLimiter(0.001, 2)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		if code := postFrom(handler, "192.168.1.1:12345"); code != http.StatusOK {
			t.Errorf("request %d: expected status %d, got %d", i, http.StatusOK, code)
		}
	}
	if code := postFrom(handler, "192.168.1.1:12345"); code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, code)
	}

	// Reads are never limited.
	req := httptest.NewRequest(http.MethodGet, "/webinars/intro/register", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET: expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestGlobalRateLimiter_DifferentIPs(t *testing.T) {
	rl := NewGlobalRateLimiter(0.001, 1)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	postFrom(handler, "192.168.1.1:12345")
	if code := postFrom(handler, "192.168.1.2:12345"); code != http.StatusOK {
		t.Errorf("second IP: expected status %d, got %d", http.StatusOK, code)
	}
}

func TestLimiterCacheClear(t *testing.T) {
	lc := newLimiterCache[string](1, 1)
	for _, k := range []string{"a", "b", "c"} {
		lc.get(k)
	}
	if lc.clearIfExceeds(5) {
		t.Error("cache of 3 should not be cleared at max 5")
	}
	if !lc.clearIfExceeds(2) {
		t.Error("cache of 3 should be cleared at max 2")
	}
	if n := lc.size(); n != 0 {
		t.Errorf("size after clear = %d, want 0", n)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xForwarded string
		xRealIP    string
		want       string
	}{
		{"remote addr", "192.168.1.1:12345", "", "", "192.168.1.1"},
		{"remote addr without port", "192.168.1.1", "", "", "192.168.1.1"},
		{"first forwarded hop", "127.0.0.1:8080", "10.0.0.1, 10.0.0.2", "", "10.0.0.1"},
		{"forwarded wins over real ip", "127.0.0.1:8080", "10.0.0.1", "10.0.0.5", "10.0.0.1"},
		{"real ip", "127.0.0.1:8080", "", "10.0.0.5", "10.0.0.5"},
		{"blank forwarded falls through", "127.0.0.1:8080", " , 10.0.0.2", "10.0.0.5", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwarded)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
