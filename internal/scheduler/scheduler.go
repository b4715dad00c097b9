// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs: webinar status
// refresh, scheduled blog publishing, webhook retries and log pruning.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/thinkspace/internal/metrics"
)

// JobTimeout bounds a single job run.
const JobTimeout = 2 * time.Minute

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

type job struct {
	name        string
	description string
	schedule    string
	fn          JobFunc
	entryID     cron.EntryID

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

// JobInfo is the view of a job shown on the system status page.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	LastError   string
	Running     bool
}

// Scheduler owns a cron instance and the jobs registered on it.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.RWMutex
	jobs   map[string]*job
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Register adds a job. schedule is a standard five-field cron expression
// or a descriptor such as "@daily".
func (s *Scheduler) Register(name, description, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	j := &job{name: name, description: description, schedule: schedule, fn: fn}
	id, err := s.cron.AddFunc(schedule, func() { _ = s.run(context.Background(), j) })
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	j.entryID = id
	s.jobs[name] = j
	return nil
}

// run executes j unless a previous run is still in progress.
func (s *Scheduler) run(ctx context.Context, j *job) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		s.logger.Warn("skipping job, previous run still active", "job", j.name)
		return nil
	}
	j.running = true
	j.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, JobTimeout)
	defer cancel()

	start := time.Now()
	err := j.fn(ctx)
	metrics.RecordJobRun(j.name, err)

	j.mu.Lock()
	j.running = false
	j.lastRun = start
	j.lastErr = err
	j.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "job", j.name, "error", err)
	} else {
		s.logger.Debug("scheduled job finished", "job", j.name, "duration", time.Since(start))
	}
	return err
}

// Trigger runs a job immediately in the caller's goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}
	s.logger.Info("manually triggering job", "job", name)
	return s.run(ctx, j)
}

// List returns all jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		entry := s.cron.Entry(j.entryID)
		j.mu.Lock()
		info := JobInfo{
			Name:        j.name,
			Description: j.description,
			Schedule:    j.schedule,
			LastRun:     j.lastRun,
			NextRun:     entry.Next,
			Running:     j.running,
		}
		if j.lastErr != nil {
			info.LastError = j.lastErr.Error()
		}
		j.mu.Unlock()
		out = append(out, info)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
