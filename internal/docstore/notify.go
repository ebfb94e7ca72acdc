// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"sync"
)

// Change operations.
const (
	OpAdd    = "add"
	OpSet    = "set"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change describes one committed write.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Op         string `json:"op"`
}

// Notifier fans committed writes out to watchers.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(fn func(Change)) (unsubscribe func())
	Close() error
}

// LocalNotifier delivers changes to subscribers in the same process.
type LocalNotifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Change)
}

// NewLocalNotifier creates an in-process notifier.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[int]func(Change))}
}

// Publish calls every subscriber synchronously. Subscribers must not block.
func (n *LocalNotifier) Publish(_ context.Context, c Change) error {
	n.dispatch(c)
	return nil
}

func (n *LocalNotifier) dispatch(c Change) {
	n.mu.RLock()
	fns := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Subscribe registers fn until the returned function is called.
func (n *LocalNotifier) Subscribe(fn func(Change)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Close drops all subscribers.
func (n *LocalNotifier) Close() error {
	n.mu.Lock()
	n.subs = make(map[int]func(Change))
	n.mu.Unlock()
	return nil
}
