// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editmode"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/session"
)

// ModeHandler switches the viewer between inline and backend editing.
type ModeHandler struct {
	sm          *scs.SessionManager
	adminPrefix string
	logger      *slog.Logger
}

// NewModeHandler creates a new ModeHandler.
func NewModeHandler(sm *scs.SessionManager, adminPrefix string, logger *slog.Logger) *ModeHandler {
	return &ModeHandler{sm: sm, adminPrefix: adminPrefix, logger: logger}
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type modeResponse struct {
	Mode     editmode.Mode `json:"mode"`
	Navigate string        `json:"navigate"`
}

// Set handles POST /mode. Backend mode requires a content role; switching
// back to inline is always allowed.
func (h *ModeHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := editmode.ParseMode(req.Mode)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	user := middleware.GetUser(r)
	if m == editmode.Backend && !user.CanEditContent() {
		h.logger.Warn("backend mode denied", "category", model.EventCategoryAuth, "uid", middleware.GetUserUID(r))
		middleware.WriteAPIError(w, http.StatusForbidden, "forbidden", "Backend mode requires an editor or admin role", nil)
		return
	}

	var target string
	sw := editmode.New(editmode.SiteRootPath, editmode.Options{
		AdminPrefix:   h.adminPrefix,
		DashboardPath: h.adminPrefix + "/dashboard",
		Logger:        h.logger,
		Navigator:     editmode.NavigatorFunc(func(path string) { target = path }),
	})
	if err := sw.Set(m); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.sm.Put(r.Context(), session.KeyMode, string(m))
	writeJSON(w, http.StatusOK, modeResponse{Mode: m, Navigate: target})
}
