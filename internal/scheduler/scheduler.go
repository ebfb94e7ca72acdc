// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds one run of a job.
const jobTimeout = 2 * time.Minute

// ErrJobNotFound is returned when triggering an unknown job.
var ErrJobNotFound = errors.New("job not found")

// Job is a named periodic task.
type Job struct {
	Name        string
	Description string
	Schedule    string // standard 5-field cron expression
	Run         func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"lastRun"`
	NextRun     time.Time `json:"nextRun"`
	LastError   string    `json:"lastError,omitempty"`
}

type entry struct {
	job     Job
	entryID cron.EntryID
	running sync.Mutex

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// Scheduler wraps a cron instance with named jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*entry
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]*entry),
	}
}

// Add registers job. Jobs may be added before or after Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, job.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	e := &entry{job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() { s.run(context.Background(), e) })
	if err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	e.entryID = id
	s.jobs[job.Name] = e
	return nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Trigger runs a job now and returns its error.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.run(ctx, e)
}

// Jobs lists registered jobs by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, e := range s.jobs {
		e.mu.Lock()
		info := JobInfo{
			Name:        e.job.Name,
			Description: e.job.Description,
			Schedule:    e.job.Schedule,
			LastRun:     e.lastRun,
			NextRun:     s.cron.Entry(e.entryID).Next,
		}
		if e.lastErr != nil {
			info.LastError = e.lastErr.Error()
		}
		e.mu.Unlock()
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// run executes one job, skipping the run if the previous one is still going.
func (s *Scheduler) run(ctx context.Context, e *entry) error {
	if !e.running.TryLock() {
		s.logger.Warn("job still running, skipping", "job", e.job.Name)
		return nil
	}
	defer e.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := e.job.Run(ctx)

	e.mu.Lock()
	e.lastRun = start
	e.lastErr = err
	e.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "job", e.job.Name, "error", err)
		return err
	}
	s.logger.Debug("scheduled job finished", "job", e.job.Name, "duration", time.Since(start))
	return nil
}
