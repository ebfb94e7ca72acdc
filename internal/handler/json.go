// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/blog"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editmode"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/scheduler"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/theme"
)

// maxBodyBytes bounds JSON request bodies. Section images arrive as data
// URIs, so this is generous.
const maxBodyBytes = 32 << 20

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONSuccess writes a JSON success response.
func writeJSONSuccess(w http.ResponseWriter, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = true
	writeJSON(w, http.StatusOK, data)
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("Invalid JSON body: %v", err), nil)
		return false
	}
	return true
}

// writeServiceError maps a service error to an HTTP response. Unknown
// errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		details := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			details[field] = ferr.Error()
		}
		middleware.WriteAPIError(w, http.StatusBadRequest, "validation_failed", "Validation failed", details)

	case errors.Is(err, pages.ErrPageNotFound),
		errors.Is(err, blog.ErrPostNotFound),
		errors.Is(err, theme.ErrThemeNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, scheduler.ErrJobNotFound),
		errors.Is(err, docstore.ErrNotFound):
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", err.Error(), nil)

	case errors.Is(err, pages.ErrSlugTaken),
		errors.Is(err, blog.ErrSlugTaken),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrLastAdmin):
		middleware.WriteAPIError(w, http.StatusConflict, "conflict", err.Error(), nil)

	case errors.Is(err, pages.ErrEmptySectionID),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, editmode.ErrInvalidMode):
		middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)

	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
