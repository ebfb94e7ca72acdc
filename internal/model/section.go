// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"maps"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SectionType tags which editable-field variant renders a section.
// Unknown values are tolerated and rendered as text.
type SectionType string

// Section types.
const (
	SectionHeading   SectionType = "heading"
	SectionParagraph SectionType = "paragraph"
	SectionImage     SectionType = "image"
	SectionButton    SectionType = "button"
	SectionCTA       SectionType = "cta"
)

// Known metadata keys.
const (
	MetaImageURL   = "imageUrl"
	MetaImageAlt   = "imageAlt"
	MetaButtonText = "buttonText"
	MetaButtonLink = "buttonLink"
	MetaCTAText    = "ctaText"
	MetaCTALink    = "ctaLink"
	MetaActive     = "active"
)

// IsKnown reports whether t is one of the closed set of section types.
func (t SectionType) IsKnown() bool {
	switch t {
	case SectionHeading, SectionParagraph, SectionImage, SectionButton, SectionCTA:
		return true
	}
	return false
}

// IsImage reports whether the section renders as an image field.
func (t SectionType) IsImage() bool {
	return t == SectionImage
}

// PageSection is one independently editable content unit.
type PageSection struct {
	ID        string         `json:"id"`
	Type      SectionType    `json:"type,omitempty"`
	Content   string         `json:"content"`
	Editable  bool           `json:"editable"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// Validate checks the section id. The type tag is deliberately not
// checked; unknown types render as text.
func (s PageSection) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required, validation.Length(1, 100)),
	)
}

// Clone returns a copy with its own metadata map.
func (s PageSection) Clone() PageSection {
	if s.Metadata != nil {
		s.Metadata = maps.Clone(s.Metadata)
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		s.UpdatedAt = &t
	}
	return s
}

// MetaString returns a string metadata value or "".
func (s PageSection) MetaString(key string) string {
	v, _ := s.Metadata[key].(string)
	return v
}

// MetaBool returns a boolean metadata value or def when unset.
func (s PageSection) MetaBool(key string, def bool) bool {
	v, ok := s.Metadata[key].(bool)
	if !ok {
		return def
	}
	return v
}

// ImageURL is shorthand for the imageUrl metadata.
func (s PageSection) ImageURL() string { return s.MetaString(MetaImageURL) }

// ImageAlt is shorthand for the imageAlt metadata.
func (s PageSection) ImageAlt() string { return s.MetaString(MetaImageAlt) }

// IsActive reports the visibility flag; sections are visible unless
// explicitly switched off.
func (s PageSection) IsActive() bool { return s.MetaBool(MetaActive, true) }

// SectionPatch is a partial section. Nil fields are left unchanged;
// Metadata keys are merged into the existing map.
type SectionPatch struct {
	Type     *SectionType   `json:"type,omitempty"`
	Content  *string        `json:"content,omitempty"`
	Editable *bool          `json:"editable,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Touched is stamped into the section's updatedAt when set.
	Touched time.Time `json:"-"`
}

// ContentPatch builds a patch that only changes content.
func ContentPatch(content string) SectionPatch {
	return SectionPatch{Content: &content}
}

// ImagePatch builds a patch that sets imageUrl and, if given, imageAlt.
func ImagePatch(url string, alt *string) SectionPatch {
	meta := map[string]any{MetaImageURL: url}
	if alt != nil {
		meta[MetaImageAlt] = *alt
	}
	t := SectionImage
	return SectionPatch{Type: &t, Metadata: meta}
}

// IsEmpty reports whether the patch changes nothing.
func (p SectionPatch) IsEmpty() bool {
	return p.Type == nil && p.Content == nil && p.Editable == nil && len(p.Metadata) == 0
}

// ApplyTo returns s with the patch merged in.
func (p SectionPatch) ApplyTo(s PageSection) PageSection {
	s = s.Clone()
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.Content != nil {
		s.Content = *p.Content
	}
	if p.Editable != nil {
		s.Editable = *p.Editable
	}
	if len(p.Metadata) > 0 {
		if s.Metadata == nil {
			s.Metadata = make(map[string]any, len(p.Metadata))
		}
		maps.Copy(s.Metadata, p.Metadata)
	}
	if !p.Touched.IsZero() {
		t := p.Touched.UTC()
		s.UpdatedAt = &t
	}
	return s
}
