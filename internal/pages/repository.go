// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pages translates page operations into document store calls.
//
// Section writes are read-modify-write cycles over a page's whole sections
// array: the store has no primitive for updating one array element. Two
// concurrent writes to different sections of the same page therefore race,
// and the later write of the array wins.
package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

var (
	// ErrPageNotFound is returned when no page matches an id or slug.
	ErrPageNotFound = errors.New("page not found")

	// ErrSlugTaken is returned when creating a page whose slug is in use.
	ErrSlugTaken = errors.New("slug already in use")

	// ErrEmptySectionID is returned for section writes without an id.
	ErrEmptySectionID = errors.New("section id is required")
)

// ChangeFunc receives the current page for a slug, or nil when no page
// matches. err is set when the store could not be queried.
type ChangeFunc func(page *model.Page, err error)

// Repository is the page adapter over a document store. It holds no state
// of its own.
type Repository struct {
	store  docstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRepository creates a page repository.
func NewRepository(store docstore.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// FetchPage returns the page with the given id.
func (r *Repository) FetchPage(ctx context.Context, id string) (*model.Page, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionPages, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodePage(*doc)
}

// FetchPageBySlug returns the page with the given slug.
func (r *Repository) FetchPageBySlug(ctx context.Context, slug string) (*model.Page, error) {
	docs, err := r.store.Find(ctx, docstore.Where(docstore.CollectionPages, "slug", slug))
	if err != nil {
		return nil, fmt.Errorf("fetching page %q: %w", slug, err)
	}
	page, err := r.pickBySlug(slug, docs)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, ErrPageNotFound
	}
	return page, nil
}

// SubscribeToPageBySlug calls onChange with the current page for slug and
// again after every change, until the returned function is called.
func (r *Repository) SubscribeToPageBySlug(slug string, onChange ChangeFunc) (unsubscribe func()) {
	return r.store.Watch(docstore.Where(docstore.CollectionPages, "slug", slug), func(docs []docstore.Document, err error) {
		if err != nil {
			onChange(nil, fmt.Errorf("watching page %q: %w", slug, err))
			return
		}
		onChange(r.pickBySlug(slug, docs))
	})
}

// UpdateSectionContent sets one section's content.
func (r *Repository) UpdateSectionContent(ctx context.Context, pageID, sectionID, content string) error {
	return r.UpdateSection(ctx, pageID, sectionID, model.ContentPatch(content))
}

// UpdateSectionImage sets one section's image url and, if given, alt text.
func (r *Repository) UpdateSectionImage(ctx context.Context, pageID, sectionID, imageURL string, imageAlt *string) error {
	return r.UpdateSection(ctx, pageID, sectionID, model.ImagePatch(imageURL, imageAlt))
}

// UpdateSection merges patch into one section of the page, appending the
// section if the page does not have it yet, and writes the sections array
// back. Fields of other sections are preserved as read.
func (r *Repository) UpdateSection(ctx context.Context, pageID, sectionID string, patch model.SectionPatch) error {
	if sectionID == "" {
		return ErrEmptySectionID
	}

	page, err := r.FetchPage(ctx, pageID)
	if err != nil {
		return err
	}

	patch.Touched = r.now()
	appended := page.PatchSection(sectionID, patch)

	if _, err := r.store.Update(ctx, docstore.CollectionPages, pageID, page); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrPageNotFound
		}
		return fmt.Errorf("writing section %q of page %s: %w", sectionID, pageID, err)
	}

	r.logger.Debug("section saved",
		"category", model.EventCategorySection,
		"page_id", pageID,
		"section_id", sectionID,
		"appended", appended,
	)
	return nil
}

// ListAllPages returns every page, published or not, in creation order.
func (r *Repository) ListAllPages(ctx context.Context) ([]model.Page, error) {
	return r.list(ctx, docstore.All(docstore.CollectionPages))
}

// ListPublishedPages returns the pages shown in public listings.
func (r *Repository) ListPublishedPages(ctx context.Context) ([]model.Page, error) {
	return r.list(ctx, docstore.Where(docstore.CollectionPages, "published", true))
}

// CreatePage stores a new page. The slug must be unused.
func (r *Repository) CreatePage(ctx context.Context, page model.Page) (*model.Page, error) {
	existing, err := r.store.Find(ctx, docstore.Where(docstore.CollectionPages, "slug", page.Slug))
	if err != nil {
		return nil, fmt.Errorf("checking slug %q: %w", page.Slug, err)
	}
	if len(existing) > 0 {
		return nil, ErrSlugTaken
	}

	if page.Sections == nil {
		page.Sections = []model.PageSection{}
	}
	page.ID = ""
	doc, err := r.store.Add(ctx, docstore.CollectionPages, page)
	if err != nil {
		return nil, fmt.Errorf("creating page %q: %w", page.Slug, err)
	}
	return decodePage(*doc)
}

// ReplacePage overwrites a whole page document. createdAt is kept by the store.
func (r *Repository) ReplacePage(ctx context.Context, page model.Page) (*model.Page, error) {
	others, err := r.store.Find(ctx, docstore.Where(docstore.CollectionPages, "slug", page.Slug))
	if err != nil {
		return nil, fmt.Errorf("checking slug %q: %w", page.Slug, err)
	}
	for _, d := range others {
		if d.ID != page.ID {
			return nil, ErrSlugTaken
		}
	}

	if page.Sections == nil {
		page.Sections = []model.PageSection{}
	}
	doc, err := r.store.Update(ctx, docstore.CollectionPages, page.ID, page)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("replacing page %s: %w", page.ID, err)
	}
	return decodePage(*doc)
}

// DeletePage removes a page.
func (r *Repository) DeletePage(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, docstore.CollectionPages, id); err != nil {
		return fmt.Errorf("deleting page %s: %w", id, err)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, q docstore.Query) ([]model.Page, error) {
	docs, err := r.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	out := make([]model.Page, 0, len(docs))
	for _, d := range docs {
		p, err := decodePage(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// pickBySlug chooses the first (oldest) match. More than one match means
// the slug index was violated; that is logged, not fatal.
func (r *Repository) pickBySlug(slug string, docs []docstore.Document) (*model.Page, error) {
	switch len(docs) {
	case 0:
		return nil, nil
	case 1:
	default:
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
		r.logger.Warn("multiple pages share a slug, using the oldest",
			"category", model.EventCategoryPage,
			"slug", slug,
			"page_ids", ids,
		)
	}
	return decodePage(docs[0])
}

func decodePage(doc docstore.Document) (*model.Page, error) {
	var p model.Page
	if err := doc.Decode(&p); err != nil {
		return nil, err
	}
	p.ID = doc.ID
	p.CreatedAt = doc.CreatedAt
	p.UpdatedAt = doc.UpdatedAt
	if p.Sections == nil {
		p.Sections = []model.PageSection{}
	}
	return &p, nil
}
