// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Blog statuses
const (
	BlogStatusDraft     = "draft"
	BlogStatusPublished = "published"
	BlogStatusArchived  = "archived"
)

// Blog is a blog post. Content is Markdown.
type Blog struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	Author        string    `json:"author"`
	Status        string    `json:"status"`
	FeaturedImage string    `json:"featuredImage,omitempty"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Validate checks a post before it is written.
func (b Blog) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&b.Slug, validation.Required, validation.Length(1, 120), validation.Match(slugPattern)),
		validation.Field(&b.Status, validation.Required, validation.In(BlogStatusDraft, BlogStatusPublished, BlogStatusArchived)),
		validation.Field(&b.Excerpt, validation.Length(0, 500)),
	)
}

// IsPublished returns true if the post is published.
func (b *Blog) IsPublished() bool {
	return b.Status == BlogStatusPublished
}
