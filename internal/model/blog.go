// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "errors"

// Blog statuses
const (
	BlogStatusDraft     = "draft"
	BlogStatusPublished = "published"
	BlogStatusArchived  = "archived"
)

// ErrPublishUnverified is returned when a blog would be published without verification.
var ErrPublishUnverified = errors.New("a blog must be verified before it can be published")

// BlogStatuses returns the blog statuses in workflow order.
func BlogStatuses() []string {
	return []string{BlogStatusDraft, BlogStatusPublished, BlogStatusArchived}
}

// IsValidBlogStatus reports whether status is a known blog status.
func IsValidBlogStatus(status string) bool {
	for _, s := range BlogStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// CanPublish reports whether a blog with the given status and verification
// flag may be saved. Only the published status depends on verification.
func CanPublish(status string, verified bool) bool {
	return status != BlogStatusPublished || verified
}

// MaxCommentLength caps comment bodies in characters.
const MaxCommentLength = 2000
