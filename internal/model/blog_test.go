// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestCanPublish(t *testing.T) {
	tests := []struct {
		status   string
		verified bool
		want     bool
	}{
		{BlogStatusDraft, false, true},
		{BlogStatusDraft, true, true},
		{BlogStatusPublished, true, true},
		{BlogStatusPublished, false, false},
		{BlogStatusArchived, false, true},
	}
	for _, tt := range tests {
		if got := CanPublish(tt.status, tt.verified); got != tt.want {
			t.Errorf("CanPublish(%q, %v) = %v, want %v", tt.status, tt.verified, got, tt.want)
		}
	}
}

func TestIsValidBlogStatus(t *testing.T) {
	for _, s := range BlogStatuses() {
		if !IsValidBlogStatus(s) {
			t.Errorf("IsValidBlogStatus(%q) = false", s)
		}
	}
	if IsValidBlogStatus("scheduled") {
		t.Error("IsValidBlogStatus(scheduled) = true")
	}
}
