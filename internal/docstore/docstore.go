// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package docstore provides a collection/document database with live query
// subscriptions. Documents are JSON objects addressed by (collection, id);
// the store assigns ids and createdAt/updatedAt timestamps and notifies
// watchers whenever a document in a watched collection changes.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Collections used by the site.
const (
	CollectionPages      = "pages"
	CollectionBlogs      = "blogs"
	CollectionThemes     = "themes"
	CollectionUsers      = "users"
	CollectionIdentities = "identities"
	CollectionEvents     = "events"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidField is returned for query fields that are not plain identifiers.
	ErrInvalidField = errors.New("invalid query field")
)

// Document is a stored JSON document plus its server-assigned metadata.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decoding %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Query selects documents of one collection. An empty Field matches every
// document; otherwise documents whose top-level Field equals Value match.
type Query struct {
	Collection string
	Field      string
	Value      any
}

// WatchFunc receives the full result of a watched query, first with the
// current state and again after every change to the collection.
type WatchFunc func(docs []Document, err error)

// Store is the document database boundary.
type Store interface {
	// Get returns one document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Find runs q and returns matches in creation order.
	Find(ctx context.Context, q Query) ([]Document, error)

	// Add stores data under a generated id.
	Add(ctx context.Context, collection string, data any) (*Document, error)

	// Set stores data under id, creating the document if needed.
	// createdAt is preserved for existing documents.
	Set(ctx context.Context, collection, id string, data any) (*Document, error)

	// Update replaces the body of an existing document and refreshes
	// updatedAt. Returns ErrNotFound if the document is gone.
	Update(ctx context.Context, collection, id string, data any) (*Document, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Watch subscribes fn to q. The returned function stops the
	// subscription; at most one delivery already in flight may still
	// complete after it returns.
	Watch(q Query, fn WatchFunc) (cancel func())
}

// Where is shorthand for an equality query.
func Where(collection, field string, value any) Query {
	return Query{Collection: collection, Field: field, Value: value}
}

// All selects every document of a collection.
func All(collection string) Query {
	return Query{Collection: collection}
}
