// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers: the public site JSON, the
// live page socket, the session endpoints and the admin API.
package handler

// HTTP headers and content types.
const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// Public routes.
const (
	RouteRoot     = "/"
	RoutePageSlug = "/p/{slug}"
	RouteBlog     = "/blog"
	RouteBlogSlug = "/blog/{slug}"
	RouteLiveSlug = "/live/{slug}"
	RouteHealth   = "/health"
	RouteLogin    = "/login"
	RouteLogout   = "/logout"
	RouteMode     = "/mode"
	RouteAPIMe    = "/api/me"
	RouteAPISite  = "/api/site"
	RouteAPITheme = "/api/theme"
	RouteThemeCSS = "/theme.css"
	RouteSitemap  = "/sitemap.xml"
	RouteRobots   = "/robots.txt"
)

// Admin API routes, relative to the admin API prefix.
const (
	RouteAdminAPI     = "/api"
	RoutePages        = "/pages"
	RoutePagesID      = "/pages/{id}"
	RoutePageSection  = "/pages/{id}/sections/{sectionID}"
	RouteBlogs        = "/blogs"
	RouteBlogsID      = "/blogs/{id}"
	RouteThemes       = "/themes"
	RouteThemesID     = "/themes/{id}"
	RouteThemeActive  = "/themes/{id}/activate"
	RouteUsers        = "/users"
	RouteUsersID      = "/users/{uid}"
	RouteUserRole     = "/users/{uid}/role"
	RouteUserPassword = "/users/{uid}/password"
	RouteEvents       = "/events"
	RouteJobs         = "/jobs"
	RouteJobTrigger   = "/jobs/{name}/run"
)

// HomeSlug is the page served at the site root.
const HomeSlug = "home"
