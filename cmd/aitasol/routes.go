// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/blog"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/config"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editable"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/handler"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/logging"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/theme"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/version"
)

// routerDeps is everything the router wires into handlers.
type routerDeps struct {
	ctx        context.Context
	cfg        config.Config
	info       version.Info
	db         *sql.DB
	docs       *docstore.SQLStore
	redis      *docstore.RedisNotifier // nil without Redis
	sm         *scs.SessionManager
	auth       *auth.Session
	directory  *auth.Directory
	pages      *pages.Repository
	blog       *blog.Service
	themes     *theme.Registry
	events     *logging.EventLog
	jobs       handler.JobRunner
	compressor editable.Compressor
	lp         *middleware.LoginProtection
	limiter    *middleware.RateLimiter
	csrf       func(http.Handler) http.Handler
	logger     *slog.Logger
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.cfg

	healthHandler := handler.NewHealthHandler(d.db, d.docs, d.info)
	if d.redis != nil {
		healthHandler.AddCheck("redis", d.redis)
	}
	siteHandler := handler.NewSiteHandler(d.pages, d.blog, d.themes, cfg, d.logger)
	authHandler := handler.NewAuthHandler(d.auth, d.lp, d.logger)
	modeHandler := handler.NewModeHandler(d.sm, cfg.AdminPrefix, d.logger)
	liveHandler := handler.NewLiveHandler(d.ctx, handler.LiveConfig{
		Pages:       d.pages,
		Auth:        d.auth,
		Compressor:  d.compressor,
		AdminPrefix: cfg.AdminPrefix,
		Logger:      d.logger,
	})
	pagesHandler := handler.NewPagesHandler(d.pages, d.logger)
	blogsHandler := handler.NewBlogsHandler(d.blog, d.logger)
	themesHandler := handler.NewThemesHandler(d.themes, d.logger)
	usersHandler := handler.NewUsersHandler(d.directory, d.logger)
	eventsHandler := handler.NewEventsHandler(d.events, d.logger)
	jobsHandler := handler.NewJobsHandler(d.jobs, d.logger)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment(), middleware.WidgetHosts{
		Analytics:  cfg.AnalyticsEnabled(),
		ChatWidget: cfg.ChatWidgetEnabled(),
	})
	r.Use(middleware.SecurityHeaders(securityConfig))
	slog.Info("security headers middleware initialized",
		"hsts", !cfg.IsDevelopment(),
		"analytics", cfg.AnalyticsEnabled(),
		"chat_widget", cfg.ChatWidgetEnabled(),
	)

	r.Get(handler.RouteHealth+"/live", healthHandler.Liveness)

	// The live socket reads the session cookie itself; LoadAndSave and
	// compression would wrap the hijacked connection.
	r.Get(handler.RouteLiveSlug, liveHandler.Serve)


	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(d.sm.LoadAndSave)
		r.Use(middleware.LoadUser(d.auth))
		r.Use(middleware.EditMode(d.sm, cfg.AdminPrefix,
			"/api/", cfg.AdminPrefix+handler.RouteAdminAPI, handler.RouteThemeCSS, handler.RouteHealth,
			handler.RouteSitemap, handler.RouteRobots))
		r.Use(d.csrf)

		r.Get(handler.RouteHealth, healthHandler.Health)

		// Public site
		r.Group(func(r chi.Router) {
			r.Use(d.limiter.Middleware())
			r.Get(handler.RouteRoot, siteHandler.Home)
			r.Get(handler.RoutePageSlug, siteHandler.Page)
			r.Get(handler.RouteBlog, siteHandler.BlogIndex)
			r.Get(handler.RouteBlogSlug, siteHandler.BlogPost)
			r.Get(handler.RouteAPISite, siteHandler.Site)
			r.Get(handler.RouteAPITheme, siteHandler.Theme)
			r.Get(handler.RouteThemeCSS, siteHandler.ThemeCSS)
			r.Get(handler.RouteSitemap, siteHandler.Sitemap)
			r.Get(handler.RouteRobots, siteHandler.Robots)
			r.Get(handler.RouteAPIMe, authHandler.Me)

			r.With(d.lp.Middleware()).Post(handler.RouteLogin, authHandler.Login)
			r.Post(handler.RouteLogout, authHandler.Logout)
			r.Post(handler.RouteMode, modeHandler.Set)
		})

		// The dashboard route puts the viewer in backend mode.
		r.With(middleware.RequireEditor()).Get(cfg.AdminPrefix+"/dashboard", authHandler.Me)

		// Admin API
		r.Route(cfg.AdminPrefix+handler.RouteAdminAPI, func(r chi.Router) {
			r.Use(middleware.RequireEditor())

			r.Get(handler.RoutePages, pagesHandler.List)
			r.Post(handler.RoutePages, pagesHandler.Create)
			r.Get(handler.RoutePagesID, pagesHandler.Get)
			r.Put(handler.RoutePagesID, pagesHandler.Update)
			r.Delete(handler.RoutePagesID, pagesHandler.Delete)
			r.Patch(handler.RoutePageSection, pagesHandler.UpdateSection)

			r.Get(handler.RouteBlogs, blogsHandler.List)
			r.Post(handler.RouteBlogs, blogsHandler.Create)
			r.Get(handler.RouteBlogsID, blogsHandler.Get)
			r.Put(handler.RouteBlogsID, blogsHandler.Update)
			r.Delete(handler.RouteBlogsID, blogsHandler.Delete)

			r.Get(handler.RouteThemes, themesHandler.List)
			r.Post(handler.RouteThemes, themesHandler.Create)
			r.Put(handler.RouteThemesID, themesHandler.Update)
			r.Delete(handler.RouteThemesID, themesHandler.Delete)
			r.Post(handler.RouteThemeActive, themesHandler.Activate)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())

				r.Get(handler.RouteUsers, usersHandler.List)
				r.Post(handler.RouteUsers, usersHandler.Create)
				r.Delete(handler.RouteUsersID, usersHandler.Delete)
				r.Put(handler.RouteUserRole, usersHandler.SetRole)
				r.Put(handler.RouteUserPassword, usersHandler.SetPassword)

				r.Get(handler.RouteEvents, eventsHandler.List)
				r.Get(handler.RouteJobs, jobsHandler.List)
				r.Post(handler.RouteJobTrigger, jobsHandler.Run)
			})
		})
	})

	return r
}
