// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package editable implements role-gated in-place editing of one section
// value. A field renders read-only unless CanEdit holds, and never calls
// its save function otherwise.
package editable

import (
	"context"
	"errors"
	"sync"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editmode"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

var (
	// ErrNotAuthorized is returned when the viewer may not edit the field.
	ErrNotAuthorized = errors.New("not authorized to edit")

	// ErrNotEditing is returned for edit operations on a closed surface.
	ErrNotEditing = errors.New("field is not being edited")

	// ErrSaveInProgress is returned while a save is outstanding.
	ErrSaveInProgress = errors.New("save in progress")
)

// CanEdit is the single authorization predicate for inline editing.
// All three conditions must hold.
func CanEdit(fieldEditable bool, mode editmode.Mode, user *model.User) bool {
	return fieldEditable && mode == editmode.Inline && user.CanEditContent()
}

// Viewer is who is looking at a field and in which mode.
type Viewer struct {
	User *model.User
	Mode editmode.Mode
}

// Event is the activation event. Fields stop its propagation so enclosing
// interactive elements do not also react.
type Event struct {
	stopped bool
}

// StopPropagation marks the event as handled.
func (e *Event) StopPropagation() {
	if e != nil {
		e.stopped = true
	}
}

// PropagationStopped reports whether a field handled the event.
func (e *Event) PropagationStopped() bool { return e != nil && e.stopped }

// Status is the edit surface state.
type Status string

// Surface states.
const (
	StatusIdle    Status = "idle"
	StatusEditing Status = "editing"
	StatusSaving  Status = "saving"
)

// View is what a field renders for one viewer.
type View struct {
	SectionID   string `json:"sectionId"`
	Kind        string `json:"kind"`
	ReadOnly    bool   `json:"readOnly"`
	Status      Status `json:"status"`
	Display     string `json:"display"`
	Placeholder bool   `json:"placeholder,omitempty"`
	Draft       string `json:"draft,omitempty"`
	Error       string `json:"error,omitempty"`
	Multiline   bool   `json:"multiline,omitempty"`
}

// field is the confirm/cancel state machine shared by text and image fields.
type field struct {
	sectionID   string
	editable    bool
	placeholder string

	// changed decides whether confirming draft over value needs a save.
	changed func(draft, value string) bool
	save    func(ctx context.Context, draft string) error

	mu     sync.Mutex
	value  string
	status Status
	draft  string
	err    error
}

func (f *field) init() {
	f.status = StatusIdle
}

// SetValue replaces the upstream value. The display follows it; an open
// draft is left alone.
func (f *field) SetValue(v string) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

// Value returns the upstream value.
func (f *field) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// SetEditable updates the field's own editable flag.
func (f *field) SetEditable(editable bool) {
	f.mu.Lock()
	f.editable = editable
	f.mu.Unlock()
}

// Status returns the surface state.
func (f *field) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Draft returns the local edit buffer.
func (f *field) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Err returns the last save error.
func (f *field) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Activate opens the edit surface pre-filled with the current value.
// It reports whether the surface is open afterwards. Unauthorized
// activations leave the event untouched.
func (f *field) Activate(v Viewer, ev *Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !CanEdit(f.editable, v.Mode, v.User) {
		return false
	}
	ev.StopPropagation()

	if f.status == StatusIdle {
		f.status = StatusEditing
		f.draft = f.value
		f.err = nil
	}
	return true
}

// SetDraft replaces the edit buffer.
func (f *field) SetDraft(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.status {
	case StatusSaving:
		return ErrSaveInProgress
	case StatusIdle:
		return ErrNotEditing
	}
	f.draft = s
	return nil
}

// Confirm saves the draft. On success the surface closes and the display
// keeps the upstream value until the next refresh. On failure the surface
// stays open with the draft intact.
func (f *field) Confirm(ctx context.Context, v Viewer) error {
	save, err := f.Begin(v)
	if err != nil || save == nil {
		return err
	}
	return save(ctx)
}

// Begin is the synchronous half of Confirm. It checks the surface and the
// viewer and moves the field to saving; the returned function performs the
// write and settles the field. Both results are nil when the draft needs
// no save and the surface has closed.
func (f *field) Begin(v Viewer) (func(ctx context.Context) error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.status {
	case StatusSaving:
		return nil, ErrSaveInProgress
	case StatusIdle:
		return nil, ErrNotEditing
	}
	if !CanEdit(f.editable, v.Mode, v.User) {
		// The viewer lost the right to edit while the surface was open.
		f.status = StatusIdle
		f.draft = ""
		return nil, ErrNotAuthorized
	}
	draft := f.draft
	if f.changed != nil && !f.changed(draft, f.value) {
		f.status = StatusIdle
		f.draft = ""
		f.err = nil
		return nil, nil
	}
	f.status = StatusSaving
	f.err = nil

	return func(ctx context.Context) error {
		err := f.save(ctx, draft)

		f.mu.Lock()
		defer f.mu.Unlock()
		if err != nil {
			f.status = StatusEditing
			f.draft = draft
			f.err = err
			return err
		}
		f.status = StatusIdle
		f.draft = ""
		return nil
	}, nil
}

// Cancel discards the draft and closes the surface without saving.
func (f *field) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status == StatusSaving {
		return ErrSaveInProgress
	}
	f.status = StatusIdle
	f.draft = ""
	f.err = nil
	return nil
}

func (f *field) render(v Viewer, kind string) View {
	f.mu.Lock()
	defer f.mu.Unlock()

	view := View{
		SectionID: f.sectionID,
		Kind:      kind,
		ReadOnly:  !CanEdit(f.editable, v.Mode, v.User),
		Status:    StatusIdle,
		Display:   f.value,
	}
	if view.Display == "" {
		view.Display = f.placeholder
		view.Placeholder = f.placeholder != ""
	}
	if view.ReadOnly {
		return view
	}
	view.Status = f.status
	if f.status != StatusIdle {
		view.Draft = f.draft
	}
	if f.err != nil {
		view.Error = f.err.Error()
	}
	return view
}
