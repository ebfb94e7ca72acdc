// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the HTTP session manager. Sessions carry the
// signed-in uid and the viewer's editing mode.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys.
const (
	KeyUserID = "user_uid"
	KeyMode   = "edit_mode"
)

// DefaultLifetime is how long an idle-or-not session stays valid.
const DefaultLifetime = 24 * time.Hour

// cleanupInterval is how often expired sessions are purged.
const cleanupInterval = 30 * time.Minute

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.NewWithCleanupInterval(db, cleanupInterval)

	sm.Lifetime = DefaultLifetime
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev

	// The __Host- prefix pins the cookie to this host over HTTPS.
	if !isDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}
