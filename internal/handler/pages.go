// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
)

// PagesHandler is the admin API for pages and their sections.
type PagesHandler struct {
	pages  *pages.Repository
	logger *slog.Logger
}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler(repo *pages.Repository, logger *slog.Logger) *PagesHandler {
	return &PagesHandler{pages: repo, logger: logger}
}

// List handles GET /pages. ?published=true limits the result to
// published pages.
func (h *PagesHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list []model.Page
		err  error
	)
	if r.URL.Query().Get("published") == "true" {
		list, err = h.pages.ListPublishedPages(r.Context())
	} else {
		list, err = h.pages.ListAllPages(r.Context())
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": list})
}

// Get handles GET /pages/{id}.
func (h *PagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, err := h.pages.FetchPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page})
}

// Create handles POST /pages.
func (h *PagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var page model.Page
	if !decodeJSON(w, r, &page) {
		return
	}
	if err := page.Validate(); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	created, err := h.pages.CreatePage(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("page created", "category", model.EventCategoryPage,
		"id", created.ID, "slug", created.Slug, "uid", middleware.GetUserUID(r))
	writeJSON(w, http.StatusCreated, map[string]any{"page": created})
}

// Update handles PUT /pages/{id}: a whole-document replace.
func (h *PagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var page model.Page
	if !decodeJSON(w, r, &page) {
		return
	}
	page.ID = chi.URLParam(r, "id")
	if err := page.Validate(); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	updated, err := h.pages.ReplacePage(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("page updated", "category", model.EventCategoryPage,
		"id", updated.ID, "uid", middleware.GetUserUID(r))
	writeJSON(w, http.StatusOK, map[string]any{"page": updated})
}

// Delete handles DELETE /pages/{id}.
func (h *PagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.pages.FetchPage(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.pages.DeletePage(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("page deleted", "category", model.EventCategoryPage, "id", id, "uid", middleware.GetUserUID(r))
	writeJSONSuccess(w, nil)
}

// UpdateSection handles PATCH /pages/{id}/sections/{sectionID}. Only the
// named section changes; an unknown section id is appended.
func (h *PagesHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	var patch model.SectionPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", "Patch changes nothing", nil)
		return
	}
	id, sectionID := chi.URLParam(r, "id"), chi.URLParam(r, "sectionID")
	if err := h.pages.UpdateSection(r.Context(), id, sectionID, patch); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	page, err := h.pages.FetchPage(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	sec, _ := page.Section(sectionID)
	writeJSON(w, http.StatusOK, map[string]any{"section": sec})
}
