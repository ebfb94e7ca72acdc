// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/blog"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

// BlogsHandler is the admin API for blog posts.
type BlogsHandler struct {
	blog   *blog.Service
	logger *slog.Logger
}

// NewBlogsHandler creates a new BlogsHandler.
func NewBlogsHandler(svc *blog.Service, logger *slog.Logger) *BlogsHandler {
	return &BlogsHandler{blog: svc, logger: logger}
}

// List handles GET /blogs.
func (h *BlogsHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blog.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// Get handles GET /blogs/{id}.
func (h *BlogsHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.blog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// Create handles POST /blogs. The author defaults to the signed-in user.
func (h *BlogsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var post model.Blog
	if !decodeJSON(w, r, &post) {
		return
	}
	if post.Author == "" {
		if u := middleware.GetUser(r); u != nil {
			post.Author = u.Name
			if post.Author == "" {
				post.Author = u.Email
			}
		}
	}
	created, err := h.blog.Create(r.Context(), post)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"post": created})
}

// Update handles PUT /blogs/{id}.
func (h *BlogsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var post model.Blog
	if !decodeJSON(w, r, &post) {
		return
	}
	post.ID = chi.URLParam(r, "id")
	updated, err := h.blog.Update(r.Context(), post)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": updated})
}

// Delete handles DELETE /blogs/{id}.
func (h *BlogsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.blog.Get(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.blog.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, nil)
}
