// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"path/filepath"
	"testing"
)

func TestOpenEmptyPath(t *testing.T) {
	g, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\"): %v", err)
	}
	defer func() { _ = g.Close() }()

	if g.Enabled() {
		t.Error("Enabled() = true without a database")
	}
	if got := g.Country("8.8.8.8"); got != "" {
		t.Errorf("Country = %q, want empty", got)
	}
	if err := g.Reload(); err != nil {
		t.Errorf("Reload: %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	g, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err == nil {
		t.Fatal("Open of missing file succeeded")
	}
	if g == nil || g.Enabled() {
		t.Error("missing database should yield a disabled Lookup")
	}
}

func TestCountrySkipsPrivate(t *testing.T) {
	g, _ := Open("")
	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.1", "::1", "fe80::1", "not-an-ip", ""} {
		if got := g.Country(ip); got != "" {
			t.Errorf("Country(%q) = %q, want empty", ip, got)
		}
	}
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"US", "United States"},
		{"de", "Germany"},
		{" fr ", "France"},
		{"", ""},
		{"ZZ", "ZZ"},
		{"1", "1"},
	}
	for _, tt := range tests {
		if got := CountryName(tt.code); got != tt.want {
			t.Errorf("CountryName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCountries(t *testing.T) {
	list := Countries()
	if len(list) < 190 {
		t.Fatalf("Countries() returned %d entries", len(list))
	}
	seen := map[string]bool{}
	for i, c := range list {
		if len(c.Code) != 2 {
			t.Errorf("bad code %q", c.Code)
		}
		if seen[c.Code] {
			t.Errorf("duplicate code %q", c.Code)
		}
		seen[c.Code] = true
		if i > 0 && list[i-1].Name > c.Name {
			t.Errorf("not sorted at %d: %q > %q", i, list[i-1].Name, c.Name)
		}
	}
	if !seen["GB"] || !seen["JP"] {
		t.Error("expected GB and JP in list")
	}
}
