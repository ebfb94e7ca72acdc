// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package binding keeps an in-memory page mirror synchronized with the
// document store for one slug at a time.
//
// The mirror is only ever replaced by subscription deliveries. Section
// writes go straight to the store and the result shows up when the store
// echoes the change back.
package binding

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
)

// ErrPageNotLoaded is returned by writes attempted before a page is bound.
var ErrPageNotLoaded = errors.New("page not loaded")

// ErrClosed is returned by writes on a closed binding.
var ErrClosed = errors.New("binding closed")

// Source is the subset of the page repository a binding needs.
type Source interface {
	SubscribeToPageBySlug(slug string, onChange pages.ChangeFunc) (unsubscribe func())
	UpdateSectionContent(ctx context.Context, pageID, sectionID, content string) error
	UpdateSectionImage(ctx context.Context, pageID, sectionID, imageURL string, imageAlt *string) error
	UpdateSection(ctx context.Context, pageID, sectionID string, patch model.SectionPatch) error
}

// State is a snapshot of the binding. While Loading is true Page and Err
// are nil. A nil Page with a nil Err means the slug has no page.
type State struct {
	Slug    string
	Page    *model.Page
	Loading bool
	Err     error
}

// Ready reports whether the first delivery for the current slug arrived.
func (s State) Ready() bool { return !s.Loading && s.Err == nil }

// Binding owns the page mirror for one mounted page view.
type Binding struct {
	src    Source
	logger *slog.Logger

	// pubMu orders deliveries to watchers across generations.
	pubMu sync.Mutex

	mu          sync.Mutex
	gen         uint64
	state       State
	unsubscribe func()
	closed      bool
	nextWatch   int
	watchers    map[int]func(State)
}

// New binds slug and opens its subscription.
func New(src Source, slug string, logger *slog.Logger) *Binding {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Binding{
		src:      src,
		logger:   logger,
		watchers: make(map[int]func(State)),
	}
	b.subscribe(slug)
	return b
}

// subscribe replaces the current subscription with one for slug.
func (b *Binding) subscribe(slug string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.gen++
	gen := b.gen
	old := b.unsubscribe
	b.unsubscribe = nil
	b.state = State{Slug: slug, Loading: true}
	b.mu.Unlock()

	if old != nil {
		old()
	}
	b.publish(gen, State{Slug: slug, Loading: true})

	// The source may deliver synchronously, so the lock is not held here.
	unsubscribe := b.src.SubscribeToPageBySlug(slug, func(page *model.Page, err error) {
		b.deliver(gen, page, err)
	})

	b.mu.Lock()
	if b.closed || b.gen != gen {
		b.mu.Unlock()
		unsubscribe()
		return
	}
	b.unsubscribe = unsubscribe
	b.mu.Unlock()
}

func (b *Binding) deliver(gen uint64, page *model.Page, err error) {
	b.mu.Lock()
	if b.closed || gen != b.gen {
		// Late delivery from a torn-down subscription.
		b.mu.Unlock()
		return
	}
	next := State{Slug: b.state.Slug, Page: page.Clone()}
	if err != nil {
		// Keep showing the last good page alongside the error.
		next.Page = b.state.Page
		next.Err = err
	}
	b.state = next
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("page subscription failed",
			"category", model.EventCategoryPage,
			"slug", next.Slug,
			"error", err,
		)
	}
	b.publish(gen, next)
}

// publish hands s to the watchers unless a newer generation has started.
// Watchers run one delivery at a time and must not call SetSlug.
func (b *Binding) publish(gen uint64, s State) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	if b.closed || gen != b.gen {
		b.mu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(s.clone())
	}
}

// SetSlug rebinds to another slug. The old subscription is released and
// the binding re-enters the loading state.
func (b *Binding) SetSlug(slug string) {
	b.mu.Lock()
	same := b.state.Slug == slug && !b.closed
	b.mu.Unlock()
	if same {
		return
	}
	b.subscribe(slug)
}

// Close releases the subscription. It is safe to call more than once.
func (b *Binding) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.watchers = make(map[int]func(State))
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Watch registers fn to receive every state change until cancel is called.
func (b *Binding) Watch(fn func(State)) (cancel func()) {
	b.mu.Lock()
	id := b.nextWatch
	b.nextWatch++
	b.watchers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	}
}

// State returns a snapshot of the binding.
func (b *Binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.clone()
}

// Page returns a copy of the mirrored page, or nil.
func (b *Binding) Page() *model.Page { return b.State().Page }

// Loading reports whether the first delivery is still pending.
func (b *Binding) Loading() bool { return b.State().Loading }

// Err returns the last subscription error.
func (b *Binding) Err() error { return b.State().Err }

// Slug returns the bound slug.
func (b *Binding) Slug() string { return b.State().Slug }

// GetSection returns the section from the mirror. A miss is not an error.
func (b *Binding) GetSection(id string) (model.PageSection, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.state.Page.Section(id)
	if !ok {
		return s, false
	}
	return s.Clone(), true
}

// SectionOr returns the section from the mirror or def.
func (b *Binding) SectionOr(id string, def model.PageSection) model.PageSection {
	if s, ok := b.GetSection(id); ok {
		return s
	}
	def.ID = id
	return def
}

// UpdateSectionContent saves one section's content.
func (b *Binding) UpdateSectionContent(ctx context.Context, sectionID, content string) error {
	pageID, err := b.pageID()
	if err != nil {
		return err
	}
	return b.src.UpdateSectionContent(ctx, pageID, sectionID, content)
}

// UpdateSectionImage saves one section's image.
func (b *Binding) UpdateSectionImage(ctx context.Context, sectionID, imageURL string, imageAlt *string) error {
	pageID, err := b.pageID()
	if err != nil {
		return err
	}
	return b.src.UpdateSectionImage(ctx, pageID, sectionID, imageURL, imageAlt)
}

// UpdateSection saves a partial section.
func (b *Binding) UpdateSection(ctx context.Context, sectionID string, patch model.SectionPatch) error {
	pageID, err := b.pageID()
	if err != nil {
		return err
	}
	return b.src.UpdateSection(ctx, pageID, sectionID, patch)
}

func (b *Binding) pageID() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", ErrClosed
	}
	if b.state.Page == nil || b.state.Page.ID == "" {
		return "", ErrPageNotLoaded
	}
	return b.state.Page.ID, nil
}

func (s State) clone() State {
	s.Page = s.Page.Clone()
	return s
}
