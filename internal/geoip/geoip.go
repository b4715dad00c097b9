// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip maps client IPs to ISO country codes using a MaxMind
// GeoLite2-Country database, and country codes to English names.
package geoip

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Lookup resolves IPs to countries. A Lookup with no database path is
// valid and always answers "".
type Lookup struct {
	mu        sync.RWMutex
	db        *maxminddb.Reader
	dbPath    string
	dbModTime time.Time
}

type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open loads the database at path. An empty path disables lookups
// without error.
func Open(path string) (*Lookup, error) {
	g := &Lookup{dbPath: path}
	if path == "" {
		return g, nil
	}
	if err := g.load(); err != nil {
		return g, err
	}
	return g, nil
}

// load opens or reopens the database when its mtime changed.
// Caller must hold the write lock or own g exclusively.
func (g *Lookup) load() error {
	info, err := os.Stat(g.dbPath)
	if err != nil {
		return fmt.Errorf("stat GeoIP database: %w", err)
	}
	if g.db != nil && info.ModTime().Equal(g.dbModTime) {
		return nil
	}

	db, err := maxminddb.Open(g.dbPath)
	if err != nil {
		return fmt.Errorf("opening GeoIP database: %w", err)
	}
	if g.db != nil {
		_ = g.db.Close()
	}
	g.db = db
	g.dbModTime = info.ModTime()
	return nil
}

// Reload picks up a replaced database file. Called by the scheduler.
func (g *Lookup) Reload() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dbPath == "" {
		return nil
	}
	return g.load()
}

// Country returns the ISO code for ip, or "" when it is private,
// malformed or unknown.
func (g *Lookup) Country(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return ""
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.db == nil {
		return ""
	}

	var record geoRecord
	if err := g.db.Lookup(net.IP(addr.AsSlice()), &record); err != nil {
		return ""
	}
	return strings.ToUpper(record.Country.ISOCode)
}

// Enabled reports whether a database is loaded.
func (g *Lookup) Enabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.db != nil
}

// Close releases the database.
func (g *Lookup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

var englishRegions = display.English.Regions()

// CountryName returns the English name for a two-letter code, or the code
// itself when unknown.
func CountryName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return code
	}
	if name := englishRegions.Name(region); name != "" {
		return name
	}
	return code
}

// Country is one option of the profile country select.
type Country struct {
	Code string
	Name string
}

var (
	countriesOnce sync.Once
	countries     []Country
)

// Countries lists every ISO 3166 country with its English name, sorted by
// name.
func Countries() []Country {
	countriesOnce.Do(func() {
		for a := 'A'; a <= 'Z'; a++ {
			for b := 'A'; b <= 'Z'; b++ {
				code := string([]rune{a, b})
				region, err := language.ParseRegion(code)
				if err != nil || !region.IsCountry() || region.String() != code {
					continue
				}
				name := englishRegions.Name(region)
				if name == "" || name == code {
					continue
				}
				countries = append(countries, Country{Code: code, Name: name})
			}
		}
		sort.Slice(countries, func(i, j int) bool { return countries[i].Name < countries[j].Name })
	})
	return countries
}
