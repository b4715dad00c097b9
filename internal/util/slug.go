// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds small helpers shared across packages: slugs,
// nullable values, safe paths and outbound URL checks.
package util

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength caps generated slugs before a collision suffix is added.
const MaxSlugLength = 80

// maxSlugAttempts bounds the numeric suffix search in UniqueSlug.
const maxSlugAttempts = 1000

var (
	slugInvalid     = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts s to a lowercase ASCII slug. Accents are stripped and
// other scripts are transliterated, so "Café" becomes "cafe" and
// "Привет мир" becomes "privet-mir".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	result = unidecode.Unidecode(result)

	result = strings.ToLower(result)
	result = strings.Join(strings.Fields(result), "-")
	result = slugInvalid.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxSlugLength {
		result = strings.TrimRight(result[:MaxSlugLength], "-")
	}
	return result
}

// IsValidSlug reports whether s has slug form: lowercase letters, digits
// and single inner hyphens.
func IsValidSlug(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	return true
}

// SlugExistsFunc reports whether slug is already taken.
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// UniqueSlug slugifies source and appends -1, -2, ... until exists reports
// the candidate free. fallback is used when source has no slug characters.
func UniqueSlug(ctx context.Context, source, fallback string, exists SlugExistsFunc) (string, error) {
	base := Slugify(source)
	if base == "" {
		base = fallback
	}

	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}
