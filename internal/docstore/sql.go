// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fieldRegex restricts query fields to top-level JSON keys.
var fieldRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore is a Store backed by the documents table.
type SQLStore struct {
	db       *sql.DB
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

// NewSQLStore creates a store over db. Changes are announced through
// notifier; pass NewLocalNotifier() for a single process.
func NewSQLStore(db *sql.DB, notifier Notifier, logger *slog.Logger) *SQLStore {
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		db:       db,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		watchers: make(map[*watcher]struct{}),
	}
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT collection, id, data, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Find implements Store.
func (s *SQLStore) Find(ctx context.Context, q Query) ([]Document, error) {
	query := `SELECT collection, id, data, created_at, updated_at FROM documents WHERE collection = ?`
	args := []any{q.Collection}

	if q.Field != "" {
		if !fieldRegex.MatchString(q.Field) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, q.Field)
		}
		query += ` AND json_extract(data, ?) = ?`
		args = append(args, "$."+q.Field, queryValue(q.Value))
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Collection, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", q.Collection, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", q.Collection, err)
	}
	return docs, nil
}

// Add implements Store.
func (s *SQLStore) Add(ctx context.Context, collection string, data any) (*Document, error) {
	return s.insert(ctx, collection, uuid.NewString(), data)
}

// Set implements Store.
func (s *SQLStore) Set(ctx context.Context, collection, id string, data any) (*Document, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s/%s: %w", collection, id, err)
	}

	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, string(body), now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("setting %s/%s: %w", collection, id, err)
	}

	s.publish(ctx, Change{Collection: collection, ID: id, Op: OpSet})
	return s.Get(ctx, collection, id)
}

// Update implements Store.
func (s *SQLStore) Update(ctx context.Context, collection, id string, data any) (*Document, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s/%s: %w", collection, id, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(body), s.now().UTC().UnixNano(), collection, id)
	if err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	s.publish(ctx, Change{Collection: collection, ID: id, Op: OpUpdate})
	return s.Get(ctx, collection, id)
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.publish(ctx, Change{Collection: collection, ID: id, Op: OpDelete})
	}
	return nil
}

// Watch implements Store. The callback runs on a goroutine owned by the
// subscription; bursts of changes are coalesced into one re-query.
func (s *SQLStore) Watch(q Query, fn WatchFunc) func() {
	w := newWatcher(q, fn)

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	unsubscribe := s.notifier.Subscribe(func(c Change) {
		if c.Collection == q.Collection {
			w.trigger()
		}
	})

	go w.run(func(ctx context.Context) ([]Document, error) {
		return s.Find(ctx, q)
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			w.stop()
			s.mu.Lock()
			delete(s.watchers, w)
			s.mu.Unlock()
		})
	}
}

// WatcherCount reports the number of live subscriptions.
func (s *SQLStore) WatcherCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Close stops every live subscription.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	watchers := make([]*watcher, 0, len(s.watchers))
	for w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.watchers = make(map[*watcher]struct{})
	s.mu.Unlock()

	for _, w := range watchers {
		w.stop()
	}
	return nil
}

func (s *SQLStore) insert(ctx context.Context, collection, id string, data any) (*Document, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s/%s: %w", collection, id, err)
	}

	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, string(body), now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("adding %s/%s: %w", collection, id, err)
	}

	s.publish(ctx, Change{Collection: collection, ID: id, Op: OpAdd})
	return &Document{
		Collection: collection,
		ID:         id,
		Data:       body,
		CreatedAt:  time.Unix(0, now.UnixNano()).UTC(),
		UpdatedAt:  time.Unix(0, now.UnixNano()).UTC(),
	}, nil
}

// publish announces a committed write. Notifiers reach this process's
// watchers before any remote delivery, so a failed announcement only
// leaves other processes behind until their next change.
func (s *SQLStore) publish(ctx context.Context, c Change) {
	if err := s.notifier.Publish(ctx, c); err != nil {
		s.logger.Warn("change notification failed",
			"collection", c.Collection, "id", c.ID, "error", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc       Document
		data      string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&doc.Collection, &doc.ID, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	doc.Data = json.RawMessage(data)
	doc.CreatedAt = time.Unix(0, createdAt).UTC()
	doc.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &doc, nil
}

// queryValue converts Go values to what json_extract returns for them.
func queryValue(v any) any {
	switch b := v.(type) {
	case bool:
		if b {
			return 1
		}
		return 0
	default:
		return v
	}
}
