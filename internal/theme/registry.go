// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package theme keeps the site's active theme in memory and renders it as
// CSS custom properties.
package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

// ErrThemeNotFound is returned when no theme matches an id.
var ErrThemeNotFound = errors.New("theme not found")

// Registry tracks the active theme through a live query on isActive.
type Registry struct {
	store  docstore.Store
	logger *slog.Logger

	mu        sync.RWMutex
	active    model.Theme
	hasActive bool
	ready     chan struct{}
	readyOnce sync.Once
	cancel    func()
	nextID    int
	listeners map[int]func(model.Theme)
}

// NewRegistry creates a registry. Call Init to start tracking.
func NewRegistry(store docstore.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:     store,
		logger:    logger,
		active:    model.DefaultTheme(),
		ready:     make(chan struct{}),
		listeners: make(map[int]func(model.Theme)),
	}
}

// Init subscribes to the active theme and waits for the first delivery.
func (r *Registry) Init(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	cancel := r.store.Watch(docstore.Where(docstore.CollectionThemes, "isActive", true), r.onActive)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for active theme: %w", ctx.Err())
	}
}

// Close stops tracking.
func (r *Registry) Close() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Registry) onActive(docs []docstore.Document, err error) {
	defer r.readyOnce.Do(func() { close(r.ready) })

	if err != nil {
		r.logger.Warn("active theme query failed", "category", model.EventCategoryTheme, "error", err)
		return
	}

	next := model.DefaultTheme()
	found := false
	if len(docs) > 0 {
		// Most recently written wins when the single-active rule is broken.
		best := docs[0]
		for _, d := range docs[1:] {
			if d.UpdatedAt.After(best.UpdatedAt) {
				best = d
			}
		}
		if len(docs) > 1 {
			r.logger.Warn("more than one active theme",
				"category", model.EventCategoryTheme, "count", len(docs), "using", best.ID)
		}
		t, derr := decode(best)
		if derr != nil {
			r.logger.Warn("undecodable theme", "category", model.EventCategoryTheme, "id", best.ID, "error", derr)
		} else {
			next, found = *t, true
		}
	}

	r.mu.Lock()
	r.active = next
	r.hasActive = found
	fns := make([]func(model.Theme), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// Active returns the active theme, or the default theme when none is set.
func (r *Registry) Active() model.Theme {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// HasActive reports whether a stored theme is active.
func (r *Registry) HasActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasActive
}

// OnChange registers fn for active theme changes.
func (r *Registry) OnChange(fn func(model.Theme)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// CSS renders the active theme as :root custom properties.
func (r *Registry) CSS() string {
	return CSSVariables(r.Active())
}

// CSSVariables renders t as a :root rule. Heading sizes follow the
// modular scale baseSize * scaleRatio^n, h6 being n=0.
func CSSVariables(t model.Theme) string {
	var b strings.Builder
	b.WriteString(":root {\n")
	vars := [][2]string{
		{"--color-primary", t.Palette.Primary},
		{"--color-secondary", t.Palette.Secondary},
		{"--color-accent", t.Palette.Accent},
		{"--color-background", t.Palette.Background},
		{"--color-surface", t.Palette.Surface},
		{"--color-text", t.Palette.Text},
		{"--font-body", t.Typography.BodyFont},
		{"--font-heading", t.Typography.HeadingFont},
		{"--font-size-base", fmt.Sprintf("%dpx", t.Typography.BaseSize)},
	}
	for level := 1; level <= 6; level++ {
		size := float64(t.Typography.BaseSize) * math.Pow(t.Typography.ScaleRatio, float64(6-level))
		vars = append(vars, [2]string{fmt.Sprintf("--font-size-h%d", level), fmt.Sprintf("%.2fpx", size)})
	}
	for _, v := range vars {
		fmt.Fprintf(&b, "  %s: %s;\n", v[0], cssValue(v[1]))
	}
	b.WriteString("}\n")
	return b.String()
}

// cssValue drops characters that could end the declaration or rule.
func cssValue(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
