// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// StaticCache adds Cache-Control headers for static files and uploads.
// Error responses are marked no-store so a missing upload is not cached.
func StaticCache(maxAge time.Duration) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(int(maxAge/time.Second))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, value: value}, r)
		})
	}
}

// cacheControlWriter picks the Cache-Control value once the status is known.
type cacheControlWriter struct {
	http.ResponseWriter
	value   string
	decided bool
}

func (cw *cacheControlWriter) WriteHeader(code int) {
	if !cw.decided {
		cw.decided = true
		if code >= http.StatusBadRequest {
			cw.Header().Set("Cache-Control", "no-store")
		} else if cw.Header().Get("Cache-Control") == "" {
			cw.Header().Set("Cache-Control", cw.value)
		}
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cacheControlWriter) Write(b []byte) (int, error) {
	if !cw.decided {
		cw.WriteHeader(http.StatusOK)
	}
	return cw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (cw *cacheControlWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
