// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strings"
)

// StripTrailingSlash redirects GET and HEAD requests for paths with a
// trailing slash to the path without it (HTTP 301). Other methods are
// routed as if the slash were absent so form posts keep their body.
// The root path "/" is left alone.
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" || !strings.HasSuffix(path, "/") {
			next.ServeHTTP(w, r)
			return
		}

		// "//host/" must not turn into a protocol-relative redirect.
		newPath := "/" + strings.Trim(path, "/")

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			r2 := r.Clone(r.Context())
			r2.URL.Path = newPath
			r2.URL.RawPath = ""
			next.ServeHTTP(w, r2)
			return
		}

		newURL := newPath
		if r.URL.RawQuery != "" {
			newURL += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, newURL, http.StatusMovedPermanently)
	})
}
