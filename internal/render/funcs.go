// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"database/sql"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/thinkspace/internal/geoip"
	"github.com/olegiv/thinkspace/internal/model"
)

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"formatTime": func(t time.Time) string {
			return t.Format("3:04 PM")
		},
		"formatNullTime": func(t sql.NullTime) string {
			if !t.Valid {
				return ""
			}
			return formatDateTime(t.Time)
		},
		"inputDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(model.DateTimeInputLayout)
		},
		"inputDate": func(t sql.NullTime) string {
			if !t.Valid {
				return ""
			}
			return t.Time.Format(model.DateInputLayout)
		},
		"money":       model.FormatPrice,
		"truncate":    truncate,
		"countryName": geoip.CountryName,
		"statusBadge": statusBadge,
		"upload":      uploadURL,
		"roleOf":      model.RoleFor,
		"humanBytes":  humanBytes,
		"percent": func(f float64) string {
			return fmt.Sprintf("%.1f%%", f)
		},
		"containsID": func(ids []int64, id int64) bool {
			for _, v := range ids {
				if v == id {
					return true
				}
			}
			return false
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"seq": func(start, end int) []int {
			var result []int
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
			return result
		},
	}
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

// truncate shortens s to at most length runes, appending "...".
func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:length])) + "..."
}

// statusBadge maps a blog, webinar, registration or event status to a
// badge CSS class.
func statusBadge(status string) string {
	switch status {
	case model.BlogStatusPublished, model.RegistrationConfirmed, model.WebinarStatusCompleted:
		return "badge badge-success"
	case model.WebinarStatusLive:
		return "badge badge-live"
	case model.WebinarStatusUpcoming, model.EventLevelInfo:
		return "badge badge-info"
	case model.BlogStatusDraft, model.RegistrationPending, model.EventLevelWarning:
		return "badge badge-warning"
	case model.BlogStatusArchived:
		return "badge badge-muted"
	case model.WebinarStatusCancelled, model.EventLevelError:
		return "badge badge-danger"
	}
	return "badge"
}

// uploadURL turns a stored upload path into its public URL.
func uploadURL(rel string) string {
	if rel == "" {
		return ""
	}
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	return "/uploads/" + strings.TrimPrefix(rel, "/")
}

func humanBytes(n any) string {
	var b float64
	switch v := n.(type) {
	case int64:
		b = float64(v)
	case uint64:
		b = float64(v)
	case int:
		b = float64(v)
	default:
		return fmt.Sprint(n)
	}
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%.0f B", b)
	}
	exp := 0
	for b >= unit && exp < 4 {
		b /= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", b, "KMGT"[exp-1])
}
