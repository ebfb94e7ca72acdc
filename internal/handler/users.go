// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
)

// UsersHandler is the admin API for staff accounts.
type UsersHandler struct {
	dir    *auth.Directory
	logger *slog.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(dir *auth.Directory, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{dir: dir, logger: logger}
}

// List handles GET /users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.dir.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Create handles POST /users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.dir.CreateUser(r.Context(), auth.NewUser{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

type roleRequest struct {
	Role string `json:"role"`
}

// SetRole handles PUT /users/{uid}/role.
func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.dir.SetRole(r.Context(), chi.URLParam(r, "uid"), req.Role)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

type passwordRequest struct {
	Password string `json:"password"`
}

// SetPassword handles PUT /users/{uid}/password.
func (h *UsersHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.dir.SetPassword(r.Context(), chi.URLParam(r, "uid"), req.Password); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, nil)
}

// Delete handles DELETE /users/{uid}. Admins cannot delete themselves.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == middleware.GetUserUID(r) {
		middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", "You cannot delete your own account", nil)
		return
	}
	if err := h.dir.Delete(r.Context(), uid); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, nil)
}
