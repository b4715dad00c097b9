// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"time"
)

// Webinar statuses
const (
	WebinarStatusUpcoming  = "upcoming"
	WebinarStatusLive      = "live"
	WebinarStatusCompleted = "completed"
	WebinarStatusCancelled = "cancelled"
)

// Public webinar list tabs
const (
	WebinarTabUpcoming = "upcoming"
	WebinarTabLive     = "live"
	WebinarTabPast     = "past"
	WebinarTabAll      = "all"
)

// Registration statuses
const (
	RegistrationPending   = "pending"
	RegistrationConfirmed = "confirmed"
	RegistrationCancelled = "cancelled"
)

// Resource types
const (
	ResourceDocument = "document"
	ResourceSlides   = "slides"
	ResourceVideo    = "video"
	ResourceLink     = "link"
	ResourceOther    = "other"
)

// ErrResourceSource is returned when a resource does not have exactly one of file and url.
var ErrResourceSource = errors.New("a resource needs either a file or a URL, not both")

// WebinarStatuses returns all webinar statuses.
func WebinarStatuses() []string {
	return []string{WebinarStatusUpcoming, WebinarStatusLive, WebinarStatusCompleted, WebinarStatusCancelled}
}

// IsValidWebinarStatus reports whether status is a known webinar status.
func IsValidWebinarStatus(status string) bool {
	for _, s := range WebinarStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// NormalizeWebinarTab maps unknown tab names to the upcoming tab.
func NormalizeWebinarTab(tab string) string {
	switch tab {
	case WebinarTabLive, WebinarTabPast, WebinarTabAll:
		return tab
	default:
		return WebinarTabUpcoming
	}
}

// ResourceTypes returns all resource types.
func ResourceTypes() []string {
	return []string{ResourceDocument, ResourceSlides, ResourceVideo, ResourceLink, ResourceOther}
}

// WebinarEnd returns start plus the duration in minutes.
func WebinarEnd(start time.Time, durationMinutes int64) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

// ComputeWebinarStatus derives a webinar's status from the clock.
// Cancelled is sticky; otherwise the window [start, end] is live,
// after it completed, and before it upcoming.
func ComputeWebinarStatus(current string, start time.Time, durationMinutes int64, now time.Time) string {
	if current == WebinarStatusCancelled {
		return WebinarStatusCancelled
	}
	end := WebinarEnd(start, durationMinutes)
	switch {
	case now.After(end):
		return WebinarStatusCompleted
	case !now.Before(start):
		return WebinarStatusLive
	default:
		return WebinarStatusUpcoming
	}
}

// SeatsRemaining returns capacity minus confirmed, never below zero.
func SeatsRemaining(capacity, confirmed int64) int64 {
	if capacity <= confirmed {
		return 0
	}
	return capacity - confirmed
}

// ValidateResourceSource enforces that exactly one of file and url is set.
func ValidateResourceSource(file, url string) error {
	if (file == "") == (url == "") {
		return ErrResourceSource
	}
	return nil
}

// AcceptsRegistrations reports whether a webinar in this status takes new signups.
func AcceptsRegistrations(status string) bool {
	return status == WebinarStatusUpcoming || status == WebinarStatusLive
}

// FormatPrice renders a price in cents as "Free" or a dollar amount.
func FormatPrice(cents int64) string {
	if cents <= 0 {
		return "Free"
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
