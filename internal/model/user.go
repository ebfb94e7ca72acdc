// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the site's documents: pages and their sections,
// blog posts, themes, users and event log entries.
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// User roles. Role is the only authorization input for gated mutations.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// User is the role record stored in the users collection, keyed by the
// identity provider's uid.
type User struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the user record.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.UID, validation.Required),
		validation.Field(&u.Email, validation.Required, is.EmailFormat),
		validation.Field(&u.Role, validation.Required, validation.In(RoleAdmin, RoleEditor)),
	)
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanEditContent reports whether the user's role may change site content.
func (u *User) CanEditContent() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleEditor)
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleEditor
}
