// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/config"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/testutil"
)

func newSiteHandler(env *testEnv, cfg config.Config) *SiteHandler {
	return NewSiteHandler(env.pages, env.blog, env.themes, cfg, testutil.TestLoggerSilent())
}

func TestSiteHandler_Pages(t *testing.T) {
	env := newTestEnv(t)
	env.createPage(t, model.Page{Slug: "home", Title: "Home", Sections: []model.PageSection{
		{ID: "hero-heading", Content: "Welcome", Editable: true},
	}})
	env.createPage(t, model.Page{Slug: "about", Title: "About"})
	h := newSiteHandler(env, config.Config{})

	w := httptest.NewRecorder()
	h.Home(w, httptest.NewRequest(http.MethodGet, RouteRoot, nil))
	assertStatus(t, w, http.StatusOK)
	page := decodeBody(t, w)["page"].(map[string]any)
	assert.Equal(t, "home", page["slug"])
	sections := page["sections"].([]any)
	require.Len(t, sections, 1)
	assert.Equal(t, "Welcome", sections[0].(map[string]any)["content"])

	w = httptest.NewRecorder()
	h.Page(w, withURLParams(httptest.NewRequest(http.MethodGet, "/p/about", nil), "slug", "about"))
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "About", decodeBody(t, w)["page"].(map[string]any)["title"])

	w = httptest.NewRecorder()
	h.Page(w, withURLParams(httptest.NewRequest(http.MethodGet, "/p/missing", nil), "slug", "missing"))
	assertStatus(t, w, http.StatusNotFound)
	assert.Equal(t, "not_found", errorCode(t, w))
}

func TestSiteHandler_Blog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.blog.Create(ctx, model.Blog{Title: "Hello World", Content: "Some **bold** text", Status: model.BlogStatusPublished})
	require.NoError(t, err)
	_, err = env.blog.Create(ctx, model.Blog{Title: "Secret Draft", Content: "wip"})
	require.NoError(t, err)
	h := newSiteHandler(env, config.Config{})

	w := httptest.NewRecorder()
	h.BlogIndex(w, httptest.NewRequest(http.MethodGet, RouteBlog, nil))
	assertStatus(t, w, http.StatusOK)
	posts := decodeBody(t, w)["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello-world", posts[0].(map[string]any)["slug"])

	w = httptest.NewRecorder()
	h.BlogPost(w, withURLParams(httptest.NewRequest(http.MethodGet, "/blog/hello-world", nil), "slug", "hello-world"))
	assertStatus(t, w, http.StatusOK)
	post := decodeBody(t, w)["post"].(map[string]any)
	assert.Contains(t, post["html"], "<strong>bold</strong>")

	w = httptest.NewRecorder()
	h.BlogPost(w, withURLParams(httptest.NewRequest(http.MethodGet, "/blog/secret-draft", nil), "slug", "secret-draft"))
	assertStatus(t, w, http.StatusNotFound)
}

func TestSiteHandler_Site(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	newSiteHandler(env, config.Config{}).Site(w, httptest.NewRequest(http.MethodGet, RouteAPISite, nil))
	assertStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["analytics"].(map[string]any)["enabled"])
	assert.Equal(t, false, body["chatWidget"].(map[string]any)["enabled"])

	// The chat widget needs both its id and key.
	cfg := config.Config{AnalyticsID: "G-123", ChatWidgetID: "chat-1"}
	w = httptest.NewRecorder()
	newSiteHandler(env, cfg).Site(w, httptest.NewRequest(http.MethodGet, RouteAPISite, nil))
	body = decodeBody(t, w)
	analytics := body["analytics"].(map[string]any)
	assert.Equal(t, true, analytics["enabled"])
	assert.Equal(t, "G-123", analytics["id"])
	assert.Equal(t, false, body["chatWidget"].(map[string]any)["enabled"])
}

func TestSiteHandler_ThemeCSS(t *testing.T) {
	env := newTestEnv(t)
	h := newSiteHandler(env, config.Config{})

	w := httptest.NewRecorder()
	h.ThemeCSS(w, httptest.NewRequest(http.MethodGet, RouteThemeCSS, nil))
	assertStatus(t, w, http.StatusOK)
	assert.True(t, strings.HasPrefix(w.Header().Get(HeaderContentType), "text/css"))
	assert.Contains(t, w.Body.String(), ":root")

	w = httptest.NewRecorder()
	h.Theme(w, httptest.NewRequest(http.MethodGet, RouteAPITheme, nil))
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, false, decodeBody(t, w)["stored"])
}

func TestSiteHandler_SitemapAndRobots(t *testing.T) {
	env := newTestEnv(t)
	env.createPage(t, model.Page{Slug: "home", Title: "Home", Published: true})
	env.createPage(t, model.Page{Slug: "about", Title: "About", Published: true})
	env.createPage(t, model.Page{Slug: "hidden", Title: "Hidden"})
	_, err := env.blog.Create(context.Background(), model.Blog{Title: "Launch", Content: "x", Status: model.BlogStatusPublished})
	require.NoError(t, err)
	h := newSiteHandler(env, config.Config{SiteURL: "https://aitasol.example", AdminPrefix: "/admin", Env: "production"})

	w := httptest.NewRecorder()
	h.Sitemap(w, httptest.NewRequest(http.MethodGet, RouteSitemap, nil))
	assertStatus(t, w, http.StatusOK)
	body := w.Body.String()
	assert.Contains(t, body, "<loc>https://aitasol.example/</loc>")
	assert.Contains(t, body, "<loc>https://aitasol.example/p/about</loc>")
	assert.Contains(t, body, "<loc>https://aitasol.example/blog/launch</loc>")
	assert.NotContains(t, body, "hidden")

	w = httptest.NewRecorder()
	h.Robots(w, httptest.NewRequest(http.MethodGet, RouteRobots, nil))
	assertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "Disallow: /admin\n")
	assert.Contains(t, w.Body.String(), "Sitemap: https://aitasol.example/sitemap.xml")
}

func TestSiteHandler_SiteURLFromRequest(t *testing.T) {
	h := &SiteHandler{}
	r := httptest.NewRequest(http.MethodGet, "http://local.test/robots.txt", nil)
	assert.Equal(t, "http://local.test", h.siteURL(r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://local.test", h.siteURL(r))
}
