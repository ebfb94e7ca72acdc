// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package editmode tracks whether a viewer edits content on the page
// itself (inline) or through the admin dashboard (backend).
package editmode

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Mode is the editing mode.
type Mode string

// Editing modes.
const (
	Inline  Mode = "inline"
	Backend Mode = "backend"
)

// Default routes.
const (
	DefaultAdminPrefix = "/admin"
	DashboardPath      = "/admin/dashboard"
	SiteRootPath       = "/"
)

// ErrInvalidMode is returned for values other than inline and backend.
var ErrInvalidMode = errors.New("invalid editing mode")

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Inline, Backend:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ForPath returns Backend for paths under adminPrefix and Inline otherwise.
func ForPath(adminPrefix, path string) Mode {
	if adminPrefix == "" {
		adminPrefix = DefaultAdminPrefix
	}
	adminPrefix = strings.TrimSuffix(adminPrefix, "/")
	if path == adminPrefix || strings.HasPrefix(path, adminPrefix+"/") {
		return Backend
	}
	return Inline
}

// Navigator performs a full navigation to path.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Options configures a Switch.
type Options struct {
	AdminPrefix   string
	DashboardPath string
	SiteRootPath  string
	Navigator     Navigator
	Logger        *slog.Logger
}

// Switch holds the current mode. Who may call Set is decided by callers.
type Switch struct {
	opts Options

	mu        sync.Mutex
	mode      Mode
	nextID    int
	listeners map[int]func(Mode)
}

// New creates a switch initialized from the current path.
func New(path string, opts Options) *Switch {
	if opts.AdminPrefix == "" {
		opts.AdminPrefix = DefaultAdminPrefix
	}
	if opts.DashboardPath == "" {
		opts.DashboardPath = DashboardPath
	}
	if opts.SiteRootPath == "" {
		opts.SiteRootPath = SiteRootPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Switch{
		opts:      opts,
		mode:      ForPath(opts.AdminPrefix, path),
		listeners: make(map[int]func(Mode)),
	}
}

// Mode returns the current mode.
func (s *Switch) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Navigated re-derives the mode after any navigation, including history
// moves and full page loads.
func (s *Switch) Navigated(path string) Mode {
	m := ForPath(s.opts.AdminPrefix, path)
	s.change(m)
	return m
}

// Set records m and navigates to the route that belongs to it.
func (s *Switch) Set(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	s.change(m)

	target := s.opts.SiteRootPath
	if m == Backend {
		target = s.opts.DashboardPath
	}
	if s.opts.Navigator != nil {
		s.opts.Navigator.Navigate(target)
	}
	s.opts.Logger.Debug("editing mode set", "mode", m, "navigate", target)
	return nil
}

// Target returns the route Set(m) navigates to.
func (s *Switch) Target(m Mode) string {
	if m == Backend {
		return s.opts.DashboardPath
	}
	return s.opts.SiteRootPath
}

// OnChange registers fn for mode changes until the returned func is called.
func (s *Switch) OnChange(fn func(Mode)) func() {
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

func (s *Switch) change(m Mode) {
	s.mu.Lock()
	if s.mode == m {
		s.mu.Unlock()
		return
	}
	s.mode = m
	fns := make([]func(Mode), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}
