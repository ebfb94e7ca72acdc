// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alexedwards/scs/v2"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/session"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound is returned when no identity exists for a uid.
	ErrUserNotFound = errors.New("user not found")
)

// identity is the credential record in the identities collection. Its
// document id is the uid.
type identity struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// StateFunc is called after a sign-in (with the user) or a sign-out (with nil).
type StateFunc func(uid string, user *model.User)

// Session signs users in and out of the HTTP session and resolves the
// current user's role record. Every ctx passed in must carry scs session
// data, either from LoadAndSave or SessionManager.Load.
type Session struct {
	store    docstore.Store
	sessions *scs.SessionManager
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string

	mu        sync.Mutex
	listeners map[uint64]StateFunc
	nextID    uint64
}

// NewSession creates the identity session service.
func NewSession(store docstore.Store, sessions *scs.SessionManager, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:     store,
		sessions:  sessions,
		logger:    logger,
		listeners: make(map[uint64]StateFunc),
	}
}

// Manager returns the underlying session manager.
func (s *Session) Manager() *scs.SessionManager {
	return s.sessions
}

// SignIn checks the credentials, renews the session token and stores the
// uid in the session. The returned user has an empty role when no role
// record exists.
func (s *Session) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)

	id, err := findIdentity(ctx, s.store, email)
	if errors.Is(err, ErrUserNotFound) {
		// Burn the same time as a real check.
		_, _ = CheckPassword(password, s.dummy())
		s.logger.Warn("login failed", "category", model.EventCategoryAuth, "email", email, "reason", "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	valid, err := CheckPassword(password, id.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("checking password: %w", err)
	}
	if !valid {
		s.logger.Warn("login failed", "category", model.EventCategoryAuth, "email", email, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	if NeedsRehash(id.PasswordHash) {
		s.rehash(ctx, *id, password)
	}

	if err := s.sessions.RenewToken(ctx); err != nil {
		return nil, fmt.Errorf("renewing session token: %w", err)
	}
	s.sessions.Put(ctx, session.KeyUserID, id.UID)

	user, err := s.roleRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "category", model.EventCategoryAuth, "uid", id.UID, "role", user.Role)
	s.notify(id.UID, user)
	return user, nil
}

// SignOut destroys the session.
func (s *Session) SignOut(ctx context.Context) error {
	uid := s.sessions.GetString(ctx, session.KeyUserID)
	if err := s.sessions.Destroy(ctx); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	if uid != "" {
		s.logger.Info("user logged out", "category", model.EventCategoryAuth, "uid", uid)
		s.notify(uid, nil)
	}
	return nil
}

// CurrentUID returns the signed-in uid or "".
func (s *Session) CurrentUID(ctx context.Context) string {
	return s.sessions.GetString(ctx, session.KeyUserID)
}

// CurrentUser returns the signed-in user with its role, or nil when nobody
// is signed in or the identity has been deleted.
func (s *Session) CurrentUser(ctx context.Context) *model.User {
	uid := s.CurrentUID(ctx)
	if uid == "" {
		return nil
	}
	user, err := s.Lookup(ctx, uid)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.logger.Error("loading current user", "uid", uid, "error", err)
		}
		return nil
	}
	return user
}

// Lookup returns the user for uid with its current role.
func (s *Session) Lookup(ctx context.Context, uid string) (*model.User, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionIdentities, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading identity %s: %w", uid, err)
	}
	var id identity
	if err := doc.Decode(&id); err != nil {
		return nil, err
	}
	id.UID = doc.ID
	return s.roleRecord(ctx, &id)
}

// OnAuthStateChanged registers fn for sign-in and sign-out events. The
// returned function unregisters it.
func (s *Session) OnAuthStateChanged(fn StateFunc) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// WatchUser calls fn with the role record for uid now and whenever it
// changes. fn receives nil once the record is gone.
func (s *Session) WatchUser(uid string, fn func(*model.User)) func() {
	return s.store.Watch(docstore.Where(docstore.CollectionUsers, "uid", uid), func(docs []docstore.Document, err error) {
		if err != nil {
			s.logger.Warn("watching user", "uid", uid, "error", err)
			return
		}
		if len(docs) == 0 {
			fn(nil)
			return
		}
		u, err := decodeUser(docs[0])
		if err != nil {
			s.logger.Warn("decoding user", "uid", uid, "error", err)
			return
		}
		fn(u)
	})
}

func (s *Session) notify(uid string, user *model.User) {
	s.mu.Lock()
	fns := make([]StateFunc, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(uid, user)
	}
}

// roleRecord loads the users document for an identity. A missing record
// yields a user with no role.
func (s *Session) roleRecord(ctx context.Context, id *identity) (*model.User, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionUsers, id.UID)
	if errors.Is(err, docstore.ErrNotFound) {
		return &model.User{UID: id.UID, Email: id.Email}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading role for %s: %w", id.UID, err)
	}
	return decodeUser(*doc)
}

func (s *Session) rehash(ctx context.Context, id identity, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		s.logger.Warn("rehashing password", "uid", id.UID, "error", err)
		return
	}
	id.PasswordHash = hash
	if _, err := s.store.Set(ctx, docstore.CollectionIdentities, id.UID, id); err != nil {
		s.logger.Warn("storing rehashed password", "uid", id.UID, "error", err)
		return
	}
	s.logger.Debug("password rehashed", "uid", id.UID)
}

func (s *Session) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = HashPassword("dummy-password-for-timing")
	})
	return s.dummyHash
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func findIdentity(ctx context.Context, store docstore.Store, email string) (*identity, error) {
	docs, err := store.Find(ctx, docstore.Where(docstore.CollectionIdentities, "email", email))
	if err != nil {
		return nil, fmt.Errorf("looking up identity: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	var id identity
	if err := docs[0].Decode(&id); err != nil {
		return nil, err
	}
	id.UID = docs[0].ID
	return &id, nil
}

func decodeUser(doc docstore.Document) (*model.User, error) {
	var u model.User
	if err := doc.Decode(&u); err != nil {
		return nil, err
	}
	u.UID = doc.ID
	u.CreatedAt = doc.CreatedAt
	u.UpdatedAt = doc.UpdatedAt
	return &u, nil
}
