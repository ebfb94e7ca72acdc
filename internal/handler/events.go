// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/logging"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/scheduler"
)

// Event list limits.
const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// EventsHandler lists the event log.
type EventsHandler struct {
	events *logging.EventLog
	logger *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(events *logging.EventLog, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{events: events, logger: logger}
}

// List handles GET /events?level=&limit=.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	switch level {
	case "", model.EventLevelInfo, model.EventLevelWarning, model.EventLevelError:
	default:
		middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", "Unknown level", nil)
		return
	}

	limit := defaultEventLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.events.List(r.Context(), level, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// JobRunner is the scheduler surface the jobs API needs.
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	Trigger(ctx context.Context, name string) error
}

// JobsHandler lists and triggers scheduled jobs.
type JobsHandler struct {
	jobs   JobRunner
	logger *slog.Logger
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(jobs JobRunner, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{jobs: jobs, logger: logger}
}

// List handles GET /jobs.
func (h *JobsHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": h.jobs.Jobs()})
}

// Run handles POST /jobs/{name}/run. A job failure is reported in the
// body, not as an HTTP error.
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := h.jobs.Trigger(r.Context(), name)
	if err != nil && errors.Is(err, scheduler.ErrJobNotFound) {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("job triggered", "category", model.EventCategorySystem, "job", name, "uid", middleware.GetUserUID(r))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSONSuccess(w, map[string]any{"job": name})
}
