// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editable"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/live"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/slug"
)

// LiveHandler upgrades /live/{slug} to a websocket hosting a live page
// session for the viewer.
type LiveHandler struct {
	ctx         context.Context
	pages       *pages.Repository
	auth        *auth.Session
	sm          *scs.SessionManager
	compressor  editable.Compressor
	adminPrefix string
	logger      *slog.Logger
}

// LiveConfig configures a LiveHandler.
type LiveConfig struct {
	Pages       *pages.Repository
	Auth        *auth.Session
	Compressor  editable.Compressor
	AdminPrefix string
	Logger      *slog.Logger
}

// NewLiveHandler creates a new LiveHandler. Open sockets close when ctx
// is done.
func NewLiveHandler(ctx context.Context, cfg LiveConfig) *LiveHandler {
	return &LiveHandler{
		ctx:         ctx,
		pages:       cfg.Pages,
		auth:        cfg.Auth,
		sm:          cfg.Auth.Manager(),
		compressor:  cfg.Compressor,
		adminPrefix: cfg.AdminPrefix,
		logger:      cfg.Logger,
	}
}

// Serve handles GET /live/{slug}. The route is mounted outside the session
// middleware; the session is read once from the cookie here. The optional
// path query parameter is the client's current route and seeds the
// editing mode.
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	pageSlug := chi.URLParam(r, "slug")
	if !slug.Valid(pageSlug) {
		http.NotFound(w, r)
		return
	}

	var token string
	if c, err := r.Cookie(h.sm.Cookie.Name); err == nil {
		token = c.Value
	}
	sessCtx, err := h.sm.Load(r.Context(), token)
	if err != nil {
		h.logger.Error("loading session for live page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	uid := h.auth.CurrentUID(sessCtx)
	user := h.auth.CurrentUser(sessCtx)

	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/p/" + pageSlug
	}

	ws, err := live.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("live upgrade failed", "error", err)
		return
	}

	s := live.NewSession(live.Config{
		Slug:        pageSlug,
		Path:        path,
		AdminPrefix: h.adminPrefix,
		User:        user,
		Source:      h.pages,
		Compressor:  h.compressor,
		Logger:      h.logger,
	})

	if user != nil {
		stopAuth := h.auth.OnAuthStateChanged(func(changed string, u *model.User) {
			if changed == uid && u == nil {
				s.SetUser(nil)
			}
		})
		defer stopAuth()

		stopRole := h.auth.WatchUser(uid, func(u *model.User) {
			if u == nil {
				// The role record is gone; the identity stays signed in
				// without editing rights.
				u = &model.User{UID: uid, Email: user.Email, Name: user.Name}
			}
			s.SetUser(u)
		})
		defer stopRole()
	}

	live.Serve(h.ctx, ws, s, h.logger)
}
