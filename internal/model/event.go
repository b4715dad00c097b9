// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth         = "auth"
	EventCategoryUser         = "user"
	EventCategoryBlog         = "blog"
	EventCategoryWebinar      = "webinar"
	EventCategoryRegistration = "registration"
	EventCategorySystem       = "system"
	EventCategoryCache        = "cache"
)

// EventLevels returns the event levels for filter selects.
func EventLevels() []string {
	return []string{EventLevelInfo, EventLevelWarning, EventLevelError}
}

// EventCategories returns the event categories for filter selects.
func EventCategories() []string {
	return []string{
		EventCategoryAuth,
		EventCategoryUser,
		EventCategoryBlog,
		EventCategoryWebinar,
		EventCategoryRegistration,
		EventCategorySystem,
		EventCategoryCache,
	}
}
