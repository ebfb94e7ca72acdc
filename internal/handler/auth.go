// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editmode"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

// AuthHandler handles sign-in, sign-out and the current-viewer endpoint.
type AuthHandler struct {
	session         *auth.Session
	loginProtection *middleware.LoginProtection
	logger          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(session *auth.Session, lp *middleware.LoginProtection, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{session: session, loginProtection: lp, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// viewerResponse is who is looking at the site and in which mode.
type viewerResponse struct {
	User    *model.User   `json:"user"`
	Mode    editmode.Mode `json:"mode"`
	CanEdit bool          `json:"canEdit"`
}

func viewerFor(user *model.User, mode editmode.Mode) viewerResponse {
	return viewerResponse{User: user, Mode: mode, CanEdit: user.CanEditContent()}
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", "Email and password are required", nil)
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.Locked(email); locked {
			h.logger.Warn("login attempt on locked account", "category", model.EventCategoryAuth,
				"email", email, "ip", middleware.ClientIP(r))
			middleware.WriteAPIError(w, http.StatusTooManyRequests, "account_locked",
				"Account temporarily locked. Try again in "+formatDuration(remaining)+".", nil)
			return
		}
	}

	user, err := h.session.SignIn(r.Context(), email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.loginFailed(w, email)
		return
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.Succeed(email)
	}
	writeJSON(w, http.StatusOK, viewerFor(user, middleware.GetMode(r)))
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, email string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.Fail(email); locked {
			h.logger.Warn("account locked due to failed attempts", "category", model.EventCategoryAuth,
				"email", email, "duration", lockDuration.String())
			middleware.WriteAPIError(w, http.StatusTooManyRequests, "account_locked",
				"Too many failed attempts. Try again in "+formatDuration(lockDuration)+".", nil)
			return
		}
		if remaining := h.loginProtection.Remaining(email); remaining > 0 && remaining <= 3 {
			middleware.WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password",
				map[string]string{"remainingAttempts": strconv.Itoa(remaining)})
			return
		}
	}
	middleware.WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.SignOut(r.Context()); err != nil {
		h.logger.Error("session destroy error", "error", err)
	}
	writeJSONSuccess(w, nil)
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewerFor(middleware.GetUser(r), middleware.GetMode(r)))
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
