// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestEventCategoriesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range EventCategories() {
		if seen[c] {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = true
	}
}

func TestAllWebhookEvents(t *testing.T) {
	events := AllWebhookEvents()
	if len(events) != 6 {
		t.Fatalf("len = %d, want 6", len(events))
	}
	for _, e := range events {
		if e.Type == "" || e.Description == "" {
			t.Errorf("incomplete event info %+v", e)
		}
	}
}
