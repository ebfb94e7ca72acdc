// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/blog"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/testutil"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/theme"
)

type testEnv struct {
	store   *docstore.SQLStore
	sm      *scs.SessionManager
	session *auth.Session
	dir     *auth.Directory
	pages   *pages.Repository
	blog    *blog.Service
	themes  *theme.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := testutil.TestStore(t)
	sm := scs.New()
	logger := testutil.TestLoggerSilent()
	return &testEnv{
		store:   s,
		sm:      sm,
		session: auth.NewSession(s, sm, logger),
		dir:     auth.NewDirectory(s, logger),
		pages:   pages.NewRepository(s, logger),
		blog:    blog.NewService(s, logger),
		themes:  theme.NewRegistry(s, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, email, role string) *model.User {
	t.Helper()
	u, err := e.dir.CreateUser(context.Background(), auth.NewUser{
		Email: email, Password: "correct-horse", Name: strings.Split(email, "@")[0], Role: role,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) createPage(t *testing.T, page model.Page) *model.Page {
	t.Helper()
	p, err := e.pages.CreatePage(context.Background(), page)
	require.NoError(t, err)
	return p
}

// jsonRequest builds a request with a JSON body. body may be nil.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, target, rdr)
	if body != nil {
		r.Header.Set(HeaderContentType, ContentTypeJSON)
	}
	return r
}

// withUser puts user into the request context the way LoadUser does.
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUser, user))
}

// withURLParams sets chi URL parameters, given as key/value pairs.
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withSession loads empty session data into the request context.
func withSession(t *testing.T, sm *scs.SessionManager, r *http.Request) *http.Request {
	t.Helper()
	ctx, err := sm.Load(r.Context(), "")
	require.NoError(t, err)
	return r.WithContext(ctx)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

// errorCode returns error.code from an API error body.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var apiErr middleware.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr), "body: %s", w.Body.String())
	return apiErr.Error.Code
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d; want %d (body: %s)", w.Code, want, w.Body.String())
	}
}
