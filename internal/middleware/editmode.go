// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editmode"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/session"
)

// EditMode keeps the viewer's editing mode in the session. Every page
// navigation (a GET outside the JSON and socket endpoints) re-derives the
// mode from the path through an editmode.Switch; other requests reuse the
// stored mode. The mode is available to handlers via GetMode.
func EditMode(sm *scs.SessionManager, adminPrefix string, skipPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			stored := editmode.Mode(sm.GetString(r.Context(), session.KeyMode))
			mode := stored

			if r.Method == http.MethodGet && !hasAnyPrefix(r.URL.Path, skipPrefixes) {
				sw := editmode.New(modePath(stored, adminPrefix), editmode.Options{AdminPrefix: adminPrefix})
				mode = sw.Navigated(r.URL.Path)
			}
			if mode == "" {
				mode = editmode.ForPath(adminPrefix, r.URL.Path)
			}
			if mode != stored {
				sm.Put(r.Context(), session.KeyMode, string(mode))
			}

			ctx := context.WithValue(r.Context(), ContextKeyMode, mode)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetMode returns the editing mode for the request, defaulting to inline.
func GetMode(r *http.Request) editmode.Mode {
	return ModeFromContext(r.Context())
}

// ModeFromContext is GetMode for code that only has a context.
func ModeFromContext(ctx context.Context) editmode.Mode {
	if m, ok := ctx.Value(ContextKeyMode).(editmode.Mode); ok && m != "" {
		return m
	}
	return editmode.Inline
}

// modePath returns a path whose mode is m, used to seed a Switch with the
// stored mode.
func modePath(m editmode.Mode, adminPrefix string) string {
	if m == editmode.Backend {
		if adminPrefix == "" {
			return editmode.DefaultAdminPrefix
		}
		return adminPrefix
	}
	return editmode.SiteRootPath
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
