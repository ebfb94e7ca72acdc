// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/testutil"
)

type item struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

func TestSQLStore_AddGet(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	doc, err := s.Add(ctx, "things", item{Slug: "a", Title: "A"})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := s.Get(ctx, "things", doc.ID)
	require.NoError(t, err)

	var it item
	require.NoError(t, got.Decode(&it))
	assert.Equal(t, "A", it.Title)
	assert.Equal(t, doc.CreatedAt, got.CreatedAt)
}

func TestSQLStore_GetMissing(t *testing.T) {
	s := testutil.TestStore(t)

	_, err := s.Get(context.Background(), "things", "nope")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSQLStore_FindByField(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "things", item{Slug: "a", Title: "first"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "things", item{Slug: "b", Title: "other", Active: true})
	require.NoError(t, err)
	_, err = s.Add(ctx, "things", item{Slug: "a", Title: "second"})
	require.NoError(t, err)

	docs, err := s.Find(ctx, docstore.Where("things", "slug", "a"))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var first item
	require.NoError(t, docs[0].Decode(&first))
	assert.Equal(t, "first", first.Title, "results come back in creation order")

	active, err := s.Find(ctx, docstore.Where("things", "active", true))
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := s.Find(ctx, docstore.All("things"))
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLStore_FindRejectsBadField(t *testing.T) {
	s := testutil.TestStore(t)

	_, err := s.Find(context.Background(), docstore.Where("things", "slug') OR 1=1 --", "x"))
	assert.ErrorIs(t, err, docstore.ErrInvalidField)
}

func TestSQLStore_UpdateKeepsCreatedAt(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	doc, err := s.Add(ctx, "things", item{Slug: "a", Title: "v1"})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	updated, err := s.Update(ctx, "things", doc.ID, item{Slug: "a", Title: "v2"})
	require.NoError(t, err)

	assert.Equal(t, doc.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(doc.UpdatedAt))
}

func TestSQLStore_UpdateMissing(t *testing.T) {
	s := testutil.TestStore(t)

	_, err := s.Update(context.Background(), "things", "gone", item{})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSQLStore_SetUpserts(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	created, err := s.Set(ctx, "users", "uid-1", item{Title: "one"})
	require.NoError(t, err)

	replaced, err := s.Set(ctx, "users", "uid-1", item{Title: "two"})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, replaced.CreatedAt)

	var it item
	require.NoError(t, replaced.Decode(&it))
	assert.Equal(t, "two", it.Title)
}

func TestSQLStore_Delete(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	doc, err := s.Add(ctx, "things", item{Slug: "a"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "things", doc.ID))
	require.NoError(t, s.Delete(ctx, "things", doc.ID), "deleting twice is not an error")

	_, err = s.Get(ctx, "things", doc.ID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

// recorder collects watch deliveries.
type recorder struct {
	mu    sync.Mutex
	calls [][]docstore.Document
}

func (r *recorder) fn(docs []docstore.Document, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, docs)
}

func (r *recorder) last() ([]docstore.Document, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil, 0
	}
	return r.calls[len(r.calls)-1], len(r.calls)
}

func TestSQLStore_WatchDeliversInitialAndChanges(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	rec := &recorder{}
	cancel := s.Watch(docstore.Where("things", "slug", "home"), rec.fn)
	defer cancel()

	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n >= 1
	}, time.Second, 5*time.Millisecond)

	docs, _ := rec.last()
	assert.Empty(t, docs, "initial delivery reports no match")

	_, err := s.Add(ctx, "things", item{Slug: "home", Title: "Home"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		docs, _ := rec.last()
		return len(docs) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSQLStore_WatchCancel(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	rec := &recorder{}
	cancel := s.Watch(docstore.All("things"), rec.fn)
	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n >= 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.WatcherCount())

	cancel()
	cancel()
	assert.Equal(t, 0, s.WatcherCount())

	_, n := rec.last()
	_, err := s.Add(ctx, "things", item{Slug: "x"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, after := rec.last()
	assert.Equal(t, n, after, "no deliveries after cancel")
}

func TestSQLStore_WatchIgnoresOtherCollections(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	rec := &recorder{}
	cancel := s.Watch(docstore.All("things"), rec.fn)
	defer cancel()

	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n == 1
	}, time.Second, 5*time.Millisecond)

	_, err := s.Add(ctx, "others", item{Slug: "x"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, n := rec.last()
	assert.Equal(t, 1, n)
}

func TestSQLStore_WatchSeesWritesWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	notifier := docstore.NewRedisNotifierForClient(client, "aitasol-test:changes")
	s := docstore.NewSQLStore(testutil.TestDB(t), notifier, testutil.TestLoggerSilent())
	t.Cleanup(func() {
		_ = s.Close()
		_ = notifier.Close()
	})
	ctx := context.Background()

	doc, err := s.Add(ctx, "pages", item{Slug: "home", Title: "Before"})
	require.NoError(t, err)

	rec := &recorder{}
	cancel := s.Watch(docstore.All("pages"), rec.fn)
	defer cancel()
	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n >= 1
	}, time.Second, 5*time.Millisecond)

	_, err = s.Update(ctx, "pages", doc.ID, item{Slug: "home", Title: "After"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		docs, _ := rec.last()
		if len(docs) != 1 {
			return false
		}
		var got item
		return docs[0].Decode(&got) == nil && got.Title == "After"
	}, 2*time.Second, 5*time.Millisecond)
}
