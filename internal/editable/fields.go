// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package editable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Field kinds reported in views.
const (
	KindText  = "text"
	KindImage = "image"
)

// TextSaveFunc persists a text value.
type TextSaveFunc func(ctx context.Context, value string) error

// TextConfig configures a text field.
type TextConfig struct {
	SectionID   string
	Value       string
	Editable    bool
	Placeholder string
	Multiline   bool
	Save        TextSaveFunc
}

// TextField edits a section's content.
type TextField struct {
	field
	multiline bool
}

// NewTextField creates an idle text field.
func NewTextField(cfg TextConfig) *TextField {
	f := &TextField{multiline: cfg.Multiline}
	f.sectionID = cfg.SectionID
	f.editable = cfg.Editable
	f.placeholder = cfg.Placeholder
	f.value = cfg.Value
	f.save = func(ctx context.Context, draft string) error {
		if cfg.Save == nil {
			return errors.New("no save function")
		}
		return cfg.Save(ctx, draft)
	}
	f.init()
	return f
}

// Render returns the field as viewer sees it.
func (f *TextField) Render(v Viewer) View {
	view := f.render(v, KindText)
	view.Multiline = f.multiline
	return view
}

// ImageSaveFunc persists an image URL.
type ImageSaveFunc func(ctx context.Context, url string) error

// Compressor turns a picked local file into an uploadable URL.
type Compressor interface {
	CompressToDataURI(r io.Reader) (string, error)
}

// ImageConfig configures an image field.
type ImageConfig struct {
	SectionID   string
	Value       string
	Editable    bool
	Placeholder string
	Compressor  Compressor
	Save        ImageSaveFunc
}

// ImageField edits a section's image URL.
type ImageField struct {
	field
	compressor Compressor
}

// NewImageField creates an idle image field.
func NewImageField(cfg ImageConfig) *ImageField {
	f := &ImageField{compressor: cfg.Compressor}
	f.sectionID = cfg.SectionID
	f.editable = cfg.Editable
	f.placeholder = cfg.Placeholder
	f.value = cfg.Value
	f.changed = func(draft, value string) bool {
		return strings.TrimSpace(draft) != value
	}
	f.save = func(ctx context.Context, draft string) error {
		if cfg.Save == nil {
			return errors.New("no save function")
		}
		return cfg.Save(ctx, strings.TrimSpace(draft))
	}
	f.init()
	return f
}

// SetDraftURL sets a pasted URL as the draft.
func (f *ImageField) SetDraftURL(url string) error {
	return f.SetDraft(url)
}

// PickFile compresses a local image and makes it the draft.
func (f *ImageField) PickFile(r io.Reader) error {
	if f.Status() != StatusEditing {
		if f.Status() == StatusSaving {
			return ErrSaveInProgress
		}
		return ErrNotEditing
	}
	if f.compressor == nil {
		return errors.New("image upload is not available")
	}
	uri, err := f.compressor.CompressToDataURI(r)
	if err != nil {
		return fmt.Errorf("compressing image: %w", err)
	}
	return f.SetDraft(uri)
}

// Render returns the field as viewer sees it.
func (f *ImageField) Render(v Viewer) View {
	return f.render(v, KindImage)
}
