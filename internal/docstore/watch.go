// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"sync"
	"time"
)

// watchQueryTimeout bounds one re-query of a watched result set.
const watchQueryTimeout = 10 * time.Second

// watcher drives one subscription. Triggers are coalesced through a
// one-slot channel so a burst of writes costs a single re-query.
type watcher struct {
	query Query
	fn    WatchFunc

	kick chan struct{}
	done chan struct{}

	mu      sync.Mutex
	stopped bool
}

func newWatcher(q Query, fn WatchFunc) *watcher {
	w := &watcher{
		query: q,
		fn:    fn,
		kick:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	// Initial delivery of the current state.
	w.kick <- struct{}{}
	return w
}

func (w *watcher) trigger() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.done)
}

func (w *watcher) run(find func(ctx context.Context) ([]Document, error)) {
	for {
		select {
		case <-w.done:
			return
		case <-w.kick:
		}

		ctx, cancel := context.WithTimeout(context.Background(), watchQueryTimeout)
		docs, err := find(ctx)
		cancel()

		// Drop results that raced with stop().
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		w.fn(docs, err)
	}
}
