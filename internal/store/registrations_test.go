// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func createTestWebinar(t *testing.T, q *Queries, slug string, capacity, priceCents int64) WebinarRow {
	t.Helper()
	now := testNow()
	w, err := q.CreateWebinar(context.Background(), CreateWebinarParams{
		Title:           slug,
		Slug:            slug,
		StartAt:         now.Add(24 * time.Hour),
		DurationMinutes: 60,
		Status:          "upcoming",
		PriceCents:      priceCents,
		Capacity:        capacity,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateWebinar(%s): %v", slug, err)
	}
	row, err := q.GetWebinarByID(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("GetWebinarByID: %v", err)
	}
	return row
}

func registrationParams(webinarID int64, email, status, ref string) CreateRegistrationParams {
	now := testNow()
	return CreateRegistrationParams{
		WebinarID:        webinarID,
		FullName:         "Attendee",
		Email:            email,
		Status:           status,
		PaymentReference: ref,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestCreateRegistrationWithinCapacity(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	w := createTestWebinar(t, q, "tiny", 1, 0)

	reg, err := q.CreateRegistrationWithinCapacity(ctx, registrationParams(w.ID, "a@example.com", "confirmed", "TS-1-0001"))
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if reg.Status != "confirmed" {
		t.Errorf("status = %q, want confirmed", reg.Status)
	}

	_, err = q.CreateRegistrationWithinCapacity(ctx, registrationParams(w.ID, "b@example.com", "confirmed", "TS-1-0002"))
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("registration over capacity: got %v, want sql.ErrNoRows", err)
	}

	row, err := q.GetWebinarByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWebinarByID: %v", err)
	}
	if row.ConfirmedCount != 1 || row.SeatsRemaining() != 0 {
		t.Errorf("confirmed=%d seats=%d, want 1 and 0", row.ConfirmedCount, row.SeatsRemaining())
	}
}

func TestCreateRegistrationWithinCapacity_Concurrent(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	const capacity = 3
	w := createTestWebinar(t, q, "busy", capacity, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := registrationParams(w.ID, fmt.Sprintf("u%d@example.com", i), "confirmed", fmt.Sprintf("TS-%d-%04d", w.ID, i))
			_, err := q.CreateRegistrationWithinCapacity(ctx, p)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, sql.ErrNoRows) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != capacity {
		t.Errorf("accepted = %d, want %d", accepted, capacity)
	}
}

func TestRegistration_UniqueConstraints(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	w := createTestWebinar(t, q, "unique", 10, 0)
	if _, err := q.CreateRegistrationWithinCapacity(ctx, registrationParams(w.ID, "same@example.com", "confirmed", "TS-1-1111")); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	_, err := q.CreateRegistrationWithinCapacity(ctx, registrationParams(w.ID, "same@example.com", "confirmed", "TS-1-2222"))
	if !IsUniqueViolation(err, "webinar_registrations.email") {
		t.Errorf("duplicate email: got %v", err)
	}

	_, err = q.CreateRegistrationWithinCapacity(ctx, registrationParams(w.ID, "other@example.com", "confirmed", "TS-1-1111"))
	if !IsUniqueViolation(err, "webinar_registrations.payment_reference") {
		t.Errorf("duplicate reference: got %v", err)
	}
}

func TestConfirmRegistrationWithinCapacity(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	w := createTestWebinar(t, q, "paid", 1, 2500)
	first, err := q.CreateRegistrationWithinCapacity(ctx, registrationParams(w.ID, "one@example.com", "pending", "TS-1-0001"))
	if err != nil {
		t.Fatalf("pending registration: %v", err)
	}
	second, err := q.CreateRegistrationWithinCapacity(ctx, registrationParams(w.ID, "two@example.com", "pending", "TS-1-0002"))
	if err != nil {
		t.Fatalf("pending registrations do not take seats: %v", err)
	}

	now := testNow()
	confirmed, err := q.ConfirmRegistrationWithinCapacity(ctx, ConfirmRegistrationParams{ID: first.ID, WebinarID: w.ID, UpdatedAt: now})
	if err != nil {
		t.Fatalf("confirm first: %v", err)
	}
	if confirmed.Status != "confirmed" {
		t.Errorf("status = %q, want confirmed", confirmed.Status)
	}

	_, err = q.ConfirmRegistrationWithinCapacity(ctx, ConfirmRegistrationParams{ID: second.ID, WebinarID: w.ID, UpdatedAt: now})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("confirm over capacity: got %v, want sql.ErrNoRows", err)
	}

	stats, err := q.GetWebinarStats(ctx)
	if err != nil {
		t.Fatalf("GetWebinarStats: %v", err)
	}
	if stats.RevenueCents != 2500 {
		t.Errorf("revenue = %d, want 2500", stats.RevenueCents)
	}

	counts, err := q.CountRegistrationsByStatus(ctx, w.ID)
	if err != nil {
		t.Fatalf("CountRegistrationsByStatus: %v", err)
	}
	if counts != (RegistrationCounts{Pending: 1, Confirmed: 1}) {
		t.Errorf("counts = %+v", counts)
	}
}

func TestMarkJoinedAndLeft(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	w := createTestWebinar(t, q, "live", 5, 0)
	reg, err := q.CreateRegistrationWithinCapacity(ctx, registrationParams(w.ID, "j@example.com", "confirmed", "TS-1-0003"))
	if err != nil {
		t.Fatalf("registration: %v", err)
	}

	now := testNow()
	if ok, err := q.MarkRegistrationLeft(ctx, reg.ID, now); err != nil || ok {
		t.Fatalf("leaving before joining: ok=%v err=%v", ok, err)
	}
	if ok, err := q.MarkRegistrationJoined(ctx, reg.ID, now); err != nil || !ok {
		t.Fatalf("join: ok=%v err=%v", ok, err)
	}
	if ok, err := q.MarkRegistrationLeft(ctx, reg.ID, now.Add(time.Hour)); err != nil || !ok {
		t.Fatalf("leave: ok=%v err=%v", ok, err)
	}

	got, err := q.GetRegistration(ctx, reg.ID)
	if err != nil {
		t.Fatalf("GetRegistration: %v", err)
	}
	if !got.JoinedAt.Valid || !got.LeftAt.Valid {
		t.Errorf("joined=%v left=%v", got.JoinedAt, got.LeftAt)
	}

	rows, err := q.ListRegistrationsByEmail(ctx, "j@example.com")
	if err != nil {
		t.Fatalf("ListRegistrationsByEmail: %v", err)
	}
	if len(rows) != 1 || rows[0].WebinarSlug != "live" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestListPublicWebinars_Tabs(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	now := testNow()
	mk := func(slug, status string, start time.Time) int64 {
		w, err := q.CreateWebinar(ctx, CreateWebinarParams{
			Title: slug, Slug: slug, StartAt: start, DurationMinutes: 60, Status: status, Capacity: 10,
			CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateWebinar: %v", err)
		}
		return w.ID
	}
	later := mk("later", "upcoming", now.Add(48*time.Hour))
	sooner := mk("sooner", "upcoming", now.Add(24*time.Hour))
	mk("done", "completed", now.Add(-48*time.Hour))
	mk("dropped", "cancelled", now.Add(24*time.Hour))

	speaker, err := q.CreateSpeaker(ctx, CreateSpeakerParams{Name: "Grace Hopper", Slug: "grace", IsActive: true, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateSpeaker: %v", err)
	}
	if err := q.AddWebinarSpeaker(ctx, WebinarSpeakerParams{WebinarID: later, SpeakerID: speaker.ID}); err != nil {
		t.Fatalf("AddWebinarSpeaker: %v", err)
	}

	upcoming, err := q.ListPublicWebinars(ctx, ListPublicWebinarsParams{PublicWebinarFilter: PublicWebinarFilter{Tab: "upcoming"}, Limit: 10})
	if err != nil {
		t.Fatalf("ListPublicWebinars: %v", err)
	}
	if len(upcoming) != 2 || upcoming[0].ID != sooner || upcoming[1].ID != later {
		t.Errorf("upcoming order wrong: %+v", upcoming)
	}

	tests := []struct {
		filter PublicWebinarFilter
		want   int64
	}{
		{PublicWebinarFilter{Tab: "past"}, 1},
		{PublicWebinarFilter{Tab: "live"}, 0},
		{PublicWebinarFilter{Tab: "all"}, 3},
		{PublicWebinarFilter{Tab: "all", Query: "hopper"}, 1},
	}
	for _, tt := range tests {
		n, err := q.CountPublicWebinars(ctx, tt.filter)
		if err != nil {
			t.Fatalf("CountPublicWebinars: %v", err)
		}
		if n != tt.want {
			t.Errorf("CountPublicWebinars(%+v) = %d, want %d", tt.filter, n, tt.want)
		}
	}

	soon, err := q.ListUpcomingWebinarsBetween(ctx, ListUpcomingWebinarsBetweenParams{From: now, Until: now.Add(36 * time.Hour), Limit: 6})
	if err != nil {
		t.Fatalf("ListUpcomingWebinarsBetween: %v", err)
	}
	if len(soon) != 1 || soon[0].ID != sooner {
		t.Errorf("within window = %+v", soon)
	}
}

func TestWebinarResource_SourceCheck(t *testing.T) {
	_, cleanup, ctx, q := testSetup(t)
	defer cleanup()

	w := createTestWebinar(t, q, "res", 10, 0)
	now := testNow()
	tests := []struct {
		name    string
		file    string
		url     string
		wantErr bool
	}{
		{"file only", "resources/a.pdf", "", false},
		{"url only", "", "https://example.com/slides", false},
		{"neither", "", "", true},
		{"both", "resources/b.pdf", "https://example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := q.CreateResource(ctx, CreateResourceParams{
				WebinarID: w.ID, Title: tt.name, ResourceType: "document", FilePath: tt.file, Url: tt.url, CreatedAt: now,
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateResource err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
