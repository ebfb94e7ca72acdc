// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

// ThemeAuditor repairs the single-active-theme rule.
type ThemeAuditor interface {
	AuditSingleActive(ctx context.Context) (int, error)
}

// EventPruner deletes old event log entries.
type EventPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ThemeAuditJob clears stray isActive flags left by an interrupted
// activation.
func ThemeAuditJob(a ThemeAuditor, schedule string, logger *slog.Logger) Job {
	return Job{
		Name:        "theme-audit",
		Description: "Keep exactly one active theme",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			n, err := a.AuditSingleActive(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Warn("cleared extra active themes", "category", model.EventCategoryTheme, "count", n)
			}
			return nil
		},
	}
}

// EventPruneJob deletes event log entries older than retention.
func EventPruneJob(p EventPruner, retention time.Duration, schedule string, logger *slog.Logger) Job {
	return Job{
		Name:        "event-prune",
		Description: "Delete old event log entries",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			n, err := p.PruneBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("pruned event log", "category", model.EventCategorySystem, "deleted", n)
			}
			return nil
		},
	}
}
