// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package blog manages blog posts stored in the blogs collection.
package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/slug"
)

// ExcerptLength is the rune length of generated excerpts.
const ExcerptLength = 200

var (
	// ErrPostNotFound is returned when no post matches.
	ErrPostNotFound = errors.New("post not found")

	// ErrSlugTaken is returned when an explicit slug is already used.
	ErrSlugTaken = errors.New("slug already in use")
)

// Service reads and writes blog posts.
type Service struct {
	store    docstore.Store
	renderer *Renderer
	logger   *slog.Logger
}

// NewService creates a blog service.
func NewService(store docstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		renderer: NewRenderer(),
		logger:   logger,
	}
}

// Post is a post plus its rendered body.
type Post struct {
	model.Blog
	HTML string `json:"html"`
}

// Create stores a new post. An empty slug is derived from the title and
// made unique; an explicit slug must be free.
func (s *Service) Create(ctx context.Context, b model.Blog) (*model.Blog, error) {
	if err := s.prepare(ctx, &b, ""); err != nil {
		return nil, err
	}
	b.ID = ""

	doc, err := s.store.Add(ctx, docstore.CollectionBlogs, b)
	if err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	s.logger.Info("post created", "category", model.EventCategoryBlog, "id", doc.ID, "slug", b.Slug)
	return decode(*doc)
}

// Update replaces a post. createdAt is kept.
func (s *Service) Update(ctx context.Context, b model.Blog) (*model.Blog, error) {
	if _, err := s.Get(ctx, b.ID); err != nil {
		return nil, err
	}
	if err := s.prepare(ctx, &b, b.ID); err != nil {
		return nil, err
	}

	doc, err := s.store.Update(ctx, docstore.CollectionBlogs, b.ID, b)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating post %s: %w", b.ID, err)
	}
	return decode(*doc)
}

// Get returns a post by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Blog, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionBlogs, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(*doc)
}

// GetBySlug returns a post by slug.
func (s *Service) GetBySlug(ctx context.Context, slugValue string) (*model.Blog, error) {
	docs, err := s.store.Find(ctx, docstore.Where(docstore.CollectionBlogs, "slug", slugValue))
	if err != nil {
		return nil, fmt.Errorf("fetching post %q: %w", slugValue, err)
	}
	if len(docs) == 0 {
		return nil, ErrPostNotFound
	}
	return decode(docs[0])
}

// GetPublishedPost returns a published post by slug with its HTML.
// Drafts and archived posts are reported as not found.
func (s *Service) GetPublishedPost(ctx context.Context, slugValue string) (*Post, error) {
	b, err := s.GetBySlug(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	if !b.IsPublished() {
		return nil, ErrPostNotFound
	}
	body, err := s.renderer.HTML(b.Content)
	if err != nil {
		return nil, fmt.Errorf("rendering post %q: %w", slugValue, err)
	}
	return &Post{Blog: *b, HTML: body}, nil
}

// ListPublished returns published posts, newest first.
func (s *Service) ListPublished(ctx context.Context) ([]model.Blog, error) {
	posts, err := s.list(ctx, docstore.Where(docstore.CollectionBlogs, "status", model.BlogStatusPublished))
	if err != nil {
		return nil, err
	}
	slices.Reverse(posts)
	return posts, nil
}

// ListAll returns every post, newest first.
func (s *Service) ListAll(ctx context.Context) ([]model.Blog, error) {
	posts, err := s.list(ctx, docstore.All(docstore.CollectionBlogs))
	if err != nil {
		return nil, err
	}
	slices.Reverse(posts)
	return posts, nil
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, docstore.CollectionBlogs, id); err != nil {
		return fmt.Errorf("deleting post %s: %w", id, err)
	}
	s.logger.Info("post deleted", "category", model.EventCategoryBlog, "id", id)
	return nil
}

// prepare fills defaults, resolves the slug and validates b. selfID is the
// post being updated, whose own slug does not count as taken.
func (s *Service) prepare(ctx context.Context, b *model.Blog, selfID string) error {
	b.Title = strings.TrimSpace(b.Title)
	if b.Status == "" {
		b.Status = model.BlogStatusDraft
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if strings.TrimSpace(b.Excerpt) == "" {
		b.Excerpt = s.renderer.Excerpt(b.Content, ExcerptLength)
	}

	taken := func(ctx context.Context, candidate string) (bool, error) {
		docs, err := s.store.Find(ctx, docstore.Where(docstore.CollectionBlogs, "slug", candidate))
		if err != nil {
			return false, err
		}
		for _, d := range docs {
			if d.ID != selfID {
				return true, nil
			}
		}
		return false, nil
	}

	if b.Slug == "" {
		base := slug.Make(b.Title)
		if base == "" {
			base = "post"
		}
		unique, err := slug.Unique(ctx, base, taken)
		if err != nil {
			return fmt.Errorf("choosing slug: %w", err)
		}
		b.Slug = unique
	} else {
		used, err := taken(ctx, b.Slug)
		if err != nil {
			return fmt.Errorf("checking slug %q: %w", b.Slug, err)
		}
		if used {
			return ErrSlugTaken
		}
	}

	return b.Validate()
}

func (s *Service) list(ctx context.Context, q docstore.Query) ([]model.Blog, error) {
	docs, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	out := make([]model.Blog, 0, len(docs))
	for _, d := range docs {
		b, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

func decode(doc docstore.Document) (*model.Blog, error) {
	var b model.Blog
	if err := doc.Decode(&b); err != nil {
		return nil, err
	}
	b.ID = doc.ID
	b.CreatedAt = doc.CreatedAt
	b.UpdatedAt = doc.UpdatedAt
	return &b, nil
}
