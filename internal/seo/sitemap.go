// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds the crawler-facing documents: sitemap.xml and robots.txt.
package seo

import (
	"encoding/xml"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Change frequencies used by the builder.
const (
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// Entry is a slug-addressed document with its last modification time.
type Entry struct {
	Slug      string
	UpdatedAt time.Time
}

// SitemapBuilder collects URLs under a site root.
type SitemapBuilder struct {
	siteURL string
	urls    []SitemapURL
}

// NewSitemapBuilder creates a builder; a trailing slash on siteURL is ignored.
func NewSitemapBuilder(siteURL string) *SitemapBuilder {
	return &SitemapBuilder{siteURL: strings.TrimSuffix(siteURL, "/")}
}

// AddStatic adds the public landing pages: home, about, and the blog and
// webinar listings.
func (b *SitemapBuilder) AddStatic() {
	b.add("/", time.Time{}, ChangeFreqDaily, "1.0")
	b.add("/about", time.Time{}, ChangeFreqMonthly, "0.5")
	b.add("/blog", time.Time{}, ChangeFreqDaily, "0.8")
	b.add("/webinars", time.Time{}, ChangeFreqDaily, "0.8")
}

// AddBlogs adds one /blog/{slug} URL per entry.
func (b *SitemapBuilder) AddBlogs(entries []Entry) {
	for _, e := range entries {
		b.add("/blog/"+e.Slug, e.UpdatedAt, ChangeFreqWeekly, "0.7")
	}
}

// AddWebinars adds one /webinars/{slug} URL per entry.
func (b *SitemapBuilder) AddWebinars(entries []Entry) {
	for _, e := range entries {
		b.add("/webinars/"+e.Slug, e.UpdatedAt, ChangeFreqWeekly, "0.7")
	}
}

func (b *SitemapBuilder) add(path string, updated time.Time, freq ChangeFreq, priority string) {
	u := SitemapURL{
		Loc:        b.siteURL + path,
		ChangeFreq: freq,
		Priority:   priority,
	}
	if !updated.IsZero() {
		u.LastMod = updated.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, u)
}

// Len reports how many URLs have been added.
func (b *SitemapBuilder) Len() int {
	return len(b.urls)
}

// Build renders the sitemap XML document.
func (b *SitemapBuilder) Build() ([]byte, error) {
	doc := Sitemap{XMLNS: XMLNamespace, URLs: b.urls}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
