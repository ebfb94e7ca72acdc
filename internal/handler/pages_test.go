// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/testutil"
)

func TestPagesHandler_CRUD(t *testing.T) {
	env := newTestEnv(t)
	h := NewPagesHandler(env.pages, testutil.TestLoggerSilent())

	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(t, http.MethodPost, "/admin/api/pages", model.Page{
		Slug: "services", Title: "Services", Published: true,
		Sections: []model.PageSection{{ID: "intro", Content: "We build things", Editable: true}},
	}))
	assertStatus(t, w, http.StatusCreated)
	id := decodeBody(t, w)["page"].(map[string]any)["id"].(string)
	require.NotEmpty(t, id)

	// Same slug again.
	w = httptest.NewRecorder()
	h.Create(w, jsonRequest(t, http.MethodPost, "/admin/api/pages", model.Page{Slug: "services", Title: "Again"}))
	assertStatus(t, w, http.StatusConflict)

	w = httptest.NewRecorder()
	h.Create(w, jsonRequest(t, http.MethodPost, "/admin/api/pages", model.Page{Slug: "Bad Slug!", Title: ""}))
	assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "validation_failed", errorCode(t, w))

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/admin/api/pages?published=true", nil))
	assertStatus(t, w, http.StatusOK)
	assert.Len(t, decodeBody(t, w)["pages"], 1)

	w = httptest.NewRecorder()
	h.Update(w, withURLParams(jsonRequest(t, http.MethodPut, "/admin/api/pages/"+id, model.Page{
		Slug: "services", Title: "Our Services",
	}), "id", id))
	assertStatus(t, w, http.StatusOK)
	updated := decodeBody(t, w)["page"].(map[string]any)
	assert.Equal(t, "Our Services", updated["title"])
	assert.Empty(t, updated["sections"])

	w = httptest.NewRecorder()
	h.Get(w, withURLParams(httptest.NewRequest(http.MethodGet, "/admin/api/pages/"+id, nil), "id", id))
	assertStatus(t, w, http.StatusOK)

	w = httptest.NewRecorder()
	h.Delete(w, withURLParams(httptest.NewRequest(http.MethodDelete, "/admin/api/pages/"+id, nil), "id", id))
	assertStatus(t, w, http.StatusOK)

	w = httptest.NewRecorder()
	h.Delete(w, withURLParams(httptest.NewRequest(http.MethodDelete, "/admin/api/pages/"+id, nil), "id", id))
	assertStatus(t, w, http.StatusNotFound)
}

func TestPagesHandler_UpdateSection(t *testing.T) {
	env := newTestEnv(t)
	page := env.createPage(t, model.Page{Slug: "home", Title: "Home", Sections: []model.PageSection{
		{ID: "hero-heading", Content: "Welcome", Editable: true},
		{ID: "footer", Content: "(c) us", Editable: true},
	}})
	h := NewPagesHandler(env.pages, testutil.TestLoggerSilent())

	patch := func(sectionID string, body any) *httptest.ResponseRecorder {
		r := jsonRequest(t, http.MethodPatch, "/admin/api/pages/"+page.ID+"/sections/"+sectionID, body)
		w := httptest.NewRecorder()
		h.UpdateSection(w, withURLParams(r, "id", page.ID, "sectionID", sectionID))
		return w
	}

	w := patch("hero-heading", map[string]any{"content": "Hello"})
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "Hello", decodeBody(t, w)["section"].(map[string]any)["content"])

	// Unknown sections are appended.
	w = patch("hero-cta", map[string]any{"content": "Call us", "metadata": map[string]any{"ctaLink": "/contact"}})
	assertStatus(t, w, http.StatusOK)

	got, err := env.pages.FetchPage(context.Background(), page.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 3)
	assert.Equal(t, "Hello", got.Sections[0].Content)
	assert.Equal(t, "(c) us", got.Sections[1].Content)
	assert.Equal(t, "hero-cta", got.Sections[2].ID)
	assert.Equal(t, "/contact", got.Sections[2].MetaString(model.MetaCTALink))

	w = patch("hero-heading", map[string]any{})
	assertStatus(t, w, http.StatusBadRequest)

	w = patch("hero-heading", map[string]any{"colour": "red"})
	assertStatus(t, w, http.StatusBadRequest)

	r := jsonRequest(t, http.MethodPatch, "/admin/api/pages/nope/sections/x", map[string]any{"content": "x"})
	w = httptest.NewRecorder()
	h.UpdateSection(w, withURLParams(r, "id", "nope", "sectionID", "x"))
	assertStatus(t, w, http.StatusNotFound)
}

func TestPagesHandler_SectionPatchRejectsCrossOrigin(t *testing.T) {
	env := newTestEnv(t)
	page := env.createPage(t, model.Page{Slug: "home", Title: "Home", Sections: []model.PageSection{
		{ID: "hero-heading", Content: "Welcome", Editable: true},
	}})
	h := NewPagesHandler(env.pages, testutil.TestLoggerSilent())
	csrf, err := middleware.CSRF(middleware.DefaultCSRFConfig(false, 8080))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(csrf)
	r.Patch("/admin"+RouteAdminAPI+RoutePageSection, h.UpdateSection)

	patch := func(origin, fetchSite, content string) *httptest.ResponseRecorder {
		req := jsonRequest(t, http.MethodPatch,
			"https://aitasol.example/admin/api/pages/"+page.ID+"/sections/hero-heading",
			map[string]any{"content": content})
		req.Header.Set("Origin", origin)
		req.Header.Set("Sec-Fetch-Site", fetchSite)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := patch("https://evil.example", "cross-site", "Pwned")
	assertStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "csrf_failed", errorCode(t, w))

	got, err := env.pages.FetchPage(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", got.Sections[0].Content)

	w = patch("https://aitasol.example", "same-origin", "Hello")
	assertStatus(t, w, http.StatusOK)

	got, err = env.pages.FetchPage(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Sections[0].Content)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", pages.ErrPageNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("loading: %w", pages.ErrPageNotFound), http.StatusNotFound},
		{"slug taken", pages.ErrSlugTaken, http.StatusConflict},
		{"empty section id", pages.ErrEmptySectionID, http.StatusBadRequest},
		{"validation", model.Page{}.Validate(), http.StatusBadRequest},
		{"unknown", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, httptest.NewRequest(http.MethodGet, "/", nil), testutil.TestLoggerSilent(), tt.err)
			assertStatus(t, w, tt.want)
		})
	}
}
