// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package theme

import (
	"context"
	"errors"
	"fmt"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

// List returns every stored theme in creation order.
func (r *Registry) List(ctx context.Context) ([]model.Theme, error) {
	docs, err := r.store.Find(ctx, docstore.All(docstore.CollectionThemes))
	if err != nil {
		return nil, fmt.Errorf("listing themes: %w", err)
	}
	out := make([]model.Theme, 0, len(docs))
	for _, d := range docs {
		t, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

// Get returns a theme by id.
func (r *Registry) Get(ctx context.Context, id string) (*model.Theme, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionThemes, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(*doc)
}

// Create stores a new, inactive theme.
func (r *Registry) Create(ctx context.Context, t model.Theme) (*model.Theme, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.ID = ""
	t.IsActive = false
	doc, err := r.store.Add(ctx, docstore.CollectionThemes, t)
	if err != nil {
		return nil, fmt.Errorf("creating theme: %w", err)
	}
	return decode(*doc)
}

// Update replaces a theme's name, palette and typography. The active flag
// only changes through Activate.
func (r *Registry) Update(ctx context.Context, t model.Theme) (*model.Theme, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	current, err := r.Get(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.IsActive = current.IsActive

	doc, err := r.store.Update(ctx, docstore.CollectionThemes, t.ID, t)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating theme %s: %w", t.ID, err)
	}
	return decode(*doc)
}

// Delete removes a theme. Deleting the active theme falls back to the
// default theme.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, docstore.CollectionThemes, id); err != nil {
		return fmt.Errorf("deleting theme %s: %w", id, err)
	}
	return nil
}

// Activate marks id active and clears the flag on every other theme.
// The clearing is best effort: failures are logged and left for
// AuditSingleActive to repair.
func (r *Registry) Activate(ctx context.Context, id string) error {
	target, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	target.IsActive = true
	if _, err := r.store.Update(ctx, docstore.CollectionThemes, id, target); err != nil {
		return fmt.Errorf("activating theme %s: %w", id, err)
	}

	others, err := r.store.Find(ctx, docstore.Where(docstore.CollectionThemes, "isActive", true))
	if err != nil {
		r.logger.Warn("listing active themes failed", "category", model.EventCategoryTheme, "error", err)
		return nil
	}
	for _, d := range others {
		if d.ID == id {
			continue
		}
		r.deactivate(ctx, d)
	}
	r.logger.Info("theme activated", "category", model.EventCategoryTheme, "id", id, "name", target.Name)
	return nil
}

// AuditSingleActive repairs a broken single-active rule by keeping the most
// recently updated active theme. It returns the number of themes cleared.
func (r *Registry) AuditSingleActive(ctx context.Context) (int, error) {
	docs, err := r.store.Find(ctx, docstore.Where(docstore.CollectionThemes, "isActive", true))
	if err != nil {
		return 0, fmt.Errorf("listing active themes: %w", err)
	}
	if len(docs) < 2 {
		return 0, nil
	}

	keep := docs[0]
	for _, d := range docs[1:] {
		if d.UpdatedAt.After(keep.UpdatedAt) {
			keep = d
		}
	}
	cleared := 0
	for _, d := range docs {
		if d.ID == keep.ID {
			continue
		}
		if r.deactivate(ctx, d) {
			cleared++
		}
	}
	return cleared, nil
}

func (r *Registry) deactivate(ctx context.Context, d docstore.Document) bool {
	t, err := decode(d)
	if err == nil {
		t.IsActive = false
		_, err = r.store.Update(ctx, docstore.CollectionThemes, d.ID, t)
	}
	if err != nil {
		r.logger.Warn("clearing active flag failed",
			"category", model.EventCategoryTheme, "id", d.ID, "error", err)
		return false
	}
	return true
}

func decode(doc docstore.Document) (*model.Theme, error) {
	var t model.Theme
	if err := doc.Decode(&t); err != nil {
		return nil, err
	}
	t.ID = doc.ID
	t.CreatedAt = doc.CreatedAt
	t.UpdatedAt = doc.UpdatedAt
	return &t, nil
}
