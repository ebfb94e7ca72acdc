// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

// EventLog stores audit events in the events collection.
type EventLog struct {
	store docstore.Store
}

// NewEventLog creates an event log over store.
func NewEventLog(store docstore.Store) *EventLog {
	return &EventLog{store: store}
}

// Record stores one event.
func (l *EventLog) Record(ctx context.Context, e model.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.ID = ""
	if _, err := l.store.Add(ctx, docstore.CollectionEvents, e); err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// List returns events newest first, optionally filtered by level.
// limit <= 0 means no limit.
func (l *EventLog) List(ctx context.Context, level string, limit int) ([]model.Event, error) {
	q := docstore.All(docstore.CollectionEvents)
	if level != "" {
		q = docstore.Where(docstore.CollectionEvents, "level", level)
	}
	docs, err := l.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]model.Event, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		var e model.Event
		if err := docs[i].Decode(&e); err != nil {
			return nil, err
		}
		e.ID = docs[i].ID
		events = append(events, e)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return events, nil
}

// PruneBefore deletes events created before cutoff and returns how many
// were removed.
func (l *EventLog) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	docs, err := l.store.Find(ctx, docstore.All(docstore.CollectionEvents))
	if err != nil {
		return 0, fmt.Errorf("listing events: %w", err)
	}
	deleted := 0
	for _, d := range docs {
		if !d.CreatedAt.Before(cutoff) {
			// Documents come back in creation order.
			break
		}
		if err := l.store.Delete(ctx, docstore.CollectionEvents, d.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
