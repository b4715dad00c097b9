// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// ExcerptLength is the rune limit of derived excerpts.
const ExcerptLength = 200

// ContentRenderer turns stored Markdown into sanitised HTML.
type ContentRenderer struct {
	md       goldmark.Markdown
	ugc      *bluemonday.Policy
	comments *bluemonday.Policy
}

// NewContentRenderer builds a renderer with GitHub-flavoured Markdown.
func NewContentRenderer() *ContentRenderer {
	ugc := bluemonday.UGCPolicy()
	ugc.RequireNoFollowOnLinks(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)

	return &ContentRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		ugc:      ugc,
		comments: bluemonday.StrictPolicy(),
	}
}

// Render converts Markdown to HTML safe to embed in a page.
func (r *ContentRenderer) Render(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	safe := r.ugc.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil //nolint:gosec // sanitised by bluemonday
}

// SanitizeComment strips all markup from a comment body.
func (r *ContentRenderer) SanitizeComment(s string) string {
	return strings.TrimSpace(r.comments.Sanitize(s))
}

// Excerpt renders markdown and returns its leading plain text, cut at a
// word boundary and suffixed with an ellipsis when shortened.
func (r *ContentRenderer) Excerpt(markdown string, limit int) string {
	html, err := r.Render(markdown)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return ""
	}
	doc.Find("pre, code, script, style").Remove()
	return truncateWords(strings.Join(strings.Fields(doc.Text()), " "), limit)
}

func truncateWords(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	cut := string([]rune(s)[:limit])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
