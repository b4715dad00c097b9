// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olegiv/thinkspace/internal/testutil"
)

type fakeWebinars struct{ calls atomic.Int32 }

func (f *fakeWebinars) RefreshStatuses(context.Context) (int, error) {
	f.calls.Add(1)
	return 2, nil
}

type fakeBlogs struct{ err error }

func (f *fakeBlogs) PublishDue(context.Context) (int, error) { return 0, f.err }

type fakePruner struct{ age time.Duration }

func (f *fakePruner) Prune(_ context.Context, age time.Duration) (int64, error) {
	f.age = age
	return 5, nil
}

type fakeHooks struct {
	retries atomic.Int32
	pruned  time.Duration
}

func (f *fakeHooks) RetryDue(context.Context) (int, error) {
	f.retries.Add(1)
	return 0, nil
}

func (f *fakeHooks) Prune(_ context.Context, age time.Duration) (int64, error) {
	f.pruned = age
	return 0, nil
}

func TestRegisterDefaults(t *testing.T) {
	s := New(testutil.TestLogger())
	err := s.RegisterDefaults(Deps{
		Webinars: &fakeWebinars{},
		Blogs:    &fakeBlogs{},
		Events:   &fakePruner{},
		Webhooks: &fakeHooks{},
	})
	if err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}

	jobs := s.List()
	want := []string{JobBlogPublish, JobEventPrune, JobWebhookRetry, JobWebinarStatus, JobDeliveryPrune}
	if len(jobs) != len(want) {
		t.Fatalf("registered %d jobs, want %d", len(jobs), len(want))
	}
	names := map[string]bool{}
	for _, j := range jobs {
		names[j.Name] = true
	}
	for _, n := range want {
		if !names[n] {
			t.Errorf("job %s not registered", n)
		}
	}
	if names[JobGeoIPReload] {
		t.Error("geoip job registered without a reloader")
	}
}

func TestRegisterDuplicateAndBadSchedule(t *testing.T) {
	s := New(testutil.TestLogger())
	noop := func(context.Context) error { return nil }

	if err := s.Register("a", "", "* * * * *", noop); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register("a", "", "* * * * *", noop); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := s.Register("b", "", "not a schedule", noop); err == nil {
		t.Error("invalid schedule accepted")
	}
}

func TestTrigger(t *testing.T) {
	s := New(testutil.TestLogger())
	events := &fakePruner{}
	webinars := &fakeWebinars{}
	boom := errors.New("boom")
	if err := s.RegisterDefaults(Deps{Webinars: webinars, Events: events, Blogs: &fakeBlogs{err: boom}}); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Trigger(ctx, JobWebinarStatus); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if webinars.calls.Load() != 1 {
		t.Error("webinar refresh not called")
	}

	if err := s.Trigger(ctx, JobEventPrune); err != nil {
		t.Fatalf("Trigger prune: %v", err)
	}
	if events.age != EventRetention {
		t.Errorf("prune age = %v, want %v", events.age, EventRetention)
	}

	if err := s.Trigger(ctx, JobBlogPublish); !errors.Is(err, boom) {
		t.Errorf("Trigger error = %v, want boom", err)
	}
	for _, j := range s.List() {
		if j.Name == JobBlogPublish && j.LastError != "boom" {
			t.Errorf("LastError = %q", j.LastError)
		}
		if j.Name == JobWebinarStatus && j.LastRun.IsZero() {
			t.Error("LastRun not recorded")
		}
	}

	if err := s.Trigger(ctx, "missing"); err == nil {
		t.Error("Trigger of unknown job succeeded")
	}
}

func TestStartStop(t *testing.T) {
	s := New(testutil.TestLogger())
	if err := s.Register("tick", "", "@every 1s", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	s.Start()
	if next := s.List()[0].NextRun; next.IsZero() {
		t.Error("NextRun not set after Start")
	}
	s.Stop()
}
