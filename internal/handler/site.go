// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/blog"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/config"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/seo"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/theme"
)

// SiteHandler serves the public site: pages by slug, the blog, the active
// theme and the optional widget settings.
type SiteHandler struct {
	pages  *pages.Repository
	blog   *blog.Service
	themes *theme.Registry
	cfg    config.Config
	logger *slog.Logger
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(repo *pages.Repository, blogs *blog.Service, themes *theme.Registry, cfg config.Config, logger *slog.Logger) *SiteHandler {
	return &SiteHandler{pages: repo, blog: blogs, themes: themes, cfg: cfg, logger: logger}
}

// Home handles GET /.
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, HomeSlug)
}

// Page handles GET /p/{slug}. Unpublished pages are still served by slug;
// they are only left out of listings.
func (h *SiteHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, chi.URLParam(r, "slug"))
}

func (h *SiteHandler) servePage(w http.ResponseWriter, r *http.Request, slug string) {
	page, err := h.pages.FetchPageBySlug(r.Context(), slug)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page})
}

// BlogIndex handles GET /blog.
func (h *SiteHandler) BlogIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blog.ListPublished(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// BlogPost handles GET /blog/{slug}.
func (h *SiteHandler) BlogPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.blog.GetPublishedPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

type themeResponse struct {
	Theme  model.Theme `json:"theme"`
	CSS    string      `json:"css"`
	Stored bool        `json:"stored"`
}

// Theme handles GET /api/theme.
func (h *SiteHandler) Theme(w http.ResponseWriter, _ *http.Request) {
	active := h.themes.Active()
	writeJSON(w, http.StatusOK, themeResponse{
		Theme:  active,
		CSS:    theme.CSSVariables(active),
		Stored: h.themes.HasActive(),
	})
}

// ThemeCSS handles GET /theme.css.
func (h *SiteHandler) ThemeCSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(HeaderContentType, "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(h.themes.CSS()))
}

type widgetSettings struct {
	Enabled bool   `json:"enabled"`
	ID      string `json:"id,omitempty"`
	Key     string `json:"key,omitempty"`
}

type siteResponse struct {
	Analytics  widgetSettings `json:"analytics"`
	ChatWidget widgetSettings `json:"chatWidget"`
}

// Site handles GET /api/site. Unconfigured widgets are reported disabled.
func (h *SiteHandler) Site(w http.ResponseWriter, _ *http.Request) {
	resp := siteResponse{}
	if h.cfg.AnalyticsEnabled() {
		resp.Analytics = widgetSettings{Enabled: true, ID: h.cfg.AnalyticsID}
	}
	if h.cfg.ChatWidgetEnabled() {
		resp.ChatWidget = widgetSettings{Enabled: true, ID: h.cfg.ChatWidgetID, Key: h.cfg.ChatWidgetKey}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Sitemap handles GET /sitemap.xml: published pages and posts.
func (h *SiteHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	published, err := h.pages.ListPublishedPages(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	posts, err := h.blog.ListPublished(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	b := seo.NewSitemapBuilder(h.siteURL(r), HomeSlug)
	pageEntries := make([]seo.Entry, 0, len(published))
	for _, p := range published {
		pageEntries = append(pageEntries, seo.Entry{Slug: p.Slug, UpdatedAt: p.UpdatedAt})
	}
	b.AddPages(pageEntries)
	postEntries := make([]seo.Entry, 0, len(posts))
	for _, p := range posts {
		postEntries = append(postEntries, seo.Entry{Slug: p.Slug, UpdatedAt: p.UpdatedAt})
	}
	b.AddPosts(postEntries)

	out, err := b.Build()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.Header().Set(HeaderContentType, "application/xml; charset=utf-8")
	_, _ = w.Write(out)
}

// Robots handles GET /robots.txt. Development instances ask crawlers to
// stay away entirely.
func (h *SiteHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(HeaderContentType, "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(seo.BuildRobots(seo.RobotsConfig{
		SiteURL:       h.siteURL(r),
		DisallowAll:   h.cfg.IsDevelopment(),
		DisallowPaths: []string{h.cfg.AdminPrefix},
	})))
}

func (h *SiteHandler) siteURL(r *http.Request) string {
	if h.cfg.SiteURL != "" {
		return h.cfg.SiteURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
