// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var (
	// ErrEmailTaken is returned when an identity already uses the email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrWeakPassword is returned for passwords under MinPasswordLength.
	ErrWeakPassword = errors.New("password too short")

	// ErrInvalidRole is returned for roles other than admin and editor.
	ErrInvalidRole = errors.New("invalid role")

	// ErrLastAdmin is returned when a change would leave no admin.
	ErrLastAdmin = errors.New("cannot remove the last admin")
)

// NewUser describes an account to create.
type NewUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Directory manages identities and their role records.
type Directory struct {
	store  docstore.Store
	logger *slog.Logger
}

// NewDirectory creates a user directory.
func NewDirectory(store docstore.Store, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{store: store, logger: logger}
}

// CreateUser stores a new identity and its role record under a fresh uid.
func (d *Directory) CreateUser(ctx context.Context, nu NewUser) (*model.User, error) {
	email := NormalizeEmail(nu.Email)
	if !model.IsValidRole(nu.Role) {
		return nil, ErrInvalidRole
	}
	if len(nu.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	_, err := findIdentity(ctx, d.store, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user := model.User{
		UID:   uuid.NewString(),
		Email: email,
		Name:  strings.TrimSpace(nu.Name),
		Role:  nu.Role,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	id := identity{UID: user.UID, Email: email, PasswordHash: hash}
	if _, err := d.store.Set(ctx, docstore.CollectionIdentities, user.UID, id); err != nil {
		return nil, fmt.Errorf("storing identity: %w", err)
	}
	doc, err := d.store.Set(ctx, docstore.CollectionUsers, user.UID, user)
	if err != nil {
		return nil, fmt.Errorf("storing user: %w", err)
	}

	d.logger.Info("user created", "category", model.EventCategoryUser, "uid", user.UID, "role", user.Role)
	return decodeUser(*doc)
}

// Get returns the role record for uid.
func (d *Directory) Get(ctx context.Context, uid string) (*model.User, error) {
	doc, err := d.store.Get(ctx, docstore.CollectionUsers, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(*doc)
}

// List returns every role record in creation order.
func (d *Directory) List(ctx context.Context) ([]model.User, error) {
	docs, err := d.store.Find(ctx, docstore.All(docstore.CollectionUsers))
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]model.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

// SetRole changes a user's role. Demoting the last admin fails.
func (d *Directory) SetRole(ctx context.Context, uid, role string) (*model.User, error) {
	if !model.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	user, err := d.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	if user.IsAdmin() {
		if err := d.ensureOtherAdmin(ctx, uid); err != nil {
			return nil, err
		}
	}

	user.Role = role
	doc, err := d.store.Update(ctx, docstore.CollectionUsers, uid, user)
	if err != nil {
		return nil, fmt.Errorf("updating role for %s: %w", uid, err)
	}
	d.logger.Info("user role changed", "category", model.EventCategoryUser, "uid", uid, "role", role)
	return decodeUser(*doc)
}

// SetPassword replaces a user's password hash.
func (d *Directory) SetPassword(ctx context.Context, uid, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	doc, err := d.store.Get(ctx, docstore.CollectionIdentities, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	var id identity
	if err := doc.Decode(&id); err != nil {
		return err
	}
	if id.PasswordHash, err = HashPassword(password); err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := d.store.Update(ctx, docstore.CollectionIdentities, uid, id); err != nil {
		return fmt.Errorf("updating password for %s: %w", uid, err)
	}
	d.logger.Info("user password changed", "category", model.EventCategoryUser, "uid", uid)
	return nil
}

// Delete removes the identity and role record. Deleting the last admin fails.
func (d *Directory) Delete(ctx context.Context, uid string) error {
	user, err := d.Get(ctx, uid)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if user.IsAdmin() {
		if err := d.ensureOtherAdmin(ctx, uid); err != nil {
			return err
		}
	}

	if err := d.store.Delete(ctx, docstore.CollectionUsers, uid); err != nil {
		return fmt.Errorf("deleting user %s: %w", uid, err)
	}
	if err := d.store.Delete(ctx, docstore.CollectionIdentities, uid); err != nil {
		return fmt.Errorf("deleting identity %s: %w", uid, err)
	}
	d.logger.Info("user deleted", "category", model.EventCategoryUser, "uid", uid)
	return nil
}

func (d *Directory) ensureOtherAdmin(ctx context.Context, uid string) error {
	admins, err := d.store.Find(ctx, docstore.Where(docstore.CollectionUsers, "role", model.RoleAdmin))
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	for _, doc := range admins {
		if doc.ID != uid {
			return nil
		}
	}
	return ErrLastAdmin
}
