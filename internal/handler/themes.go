// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/theme"
)

// ThemesHandler is the admin API for themes.
type ThemesHandler struct {
	themes *theme.Registry
	logger *slog.Logger
}

// NewThemesHandler creates a new ThemesHandler.
func NewThemesHandler(themes *theme.Registry, logger *slog.Logger) *ThemesHandler {
	return &ThemesHandler{themes: themes, logger: logger}
}

// List handles GET /themes.
func (h *ThemesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.themes.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"themes": list, "active": h.themes.Active()})
}

// Create handles POST /themes. New themes start inactive.
func (h *ThemesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t model.Theme
	if !decodeJSON(w, r, &t) {
		return
	}
	created, err := h.themes.Create(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("theme created", "category", model.EventCategoryTheme, "id", created.ID, "uid", middleware.GetUserUID(r))
	writeJSON(w, http.StatusCreated, map[string]any{"theme": created})
}

// Update handles PUT /themes/{id}.
func (h *ThemesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var t model.Theme
	if !decodeJSON(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	updated, err := h.themes.Update(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"theme": updated})
}

// Delete handles DELETE /themes/{id}.
func (h *ThemesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.themes.Get(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.themes.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, nil)
}

// Activate handles POST /themes/{id}/activate.
func (h *ThemesHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.themes.Activate(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"id": id})
}
