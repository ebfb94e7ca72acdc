// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// slugPattern matches lowercase URL-safe slugs such as "study-abroad".
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Page is one routable content surface made of ordered, independently
// editable sections.
type Page struct {
	ID             string        `json:"id"`
	Slug           string        `json:"slug"`
	Title          string        `json:"title"`
	SEOTitle       string        `json:"seoTitle"`
	SEODescription string        `json:"seoDescription"`
	Sections       []PageSection `json:"sections"`
	Published      bool          `json:"published"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Validate checks a page before a whole-document write.
func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Slug, validation.Required, validation.Length(1, 120), validation.Match(slugPattern)),
		validation.Field(&p.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.SEOTitle, validation.Length(0, 200)),
		validation.Field(&p.SEODescription, validation.Length(0, 500)),
		validation.Field(&p.Sections, validation.By(uniqueSectionIDs)),
	)
}

// Section returns the section with the given id. A miss is a normal
// outcome: the section has simply not been saved yet.
func (p *Page) Section(id string) (PageSection, bool) {
	if p == nil {
		return PageSection{}, false
	}
	for _, s := range p.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return PageSection{}, false
}

// SectionOr returns the section with the given id or def when absent.
func (p *Page) SectionOr(id string, def PageSection) PageSection {
	if s, ok := p.Section(id); ok {
		return s
	}
	def.ID = id
	return def
}

// Clone returns a deep copy so callers can't alias a shared mirror.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Sections = make([]PageSection, len(p.Sections))
	for i, s := range p.Sections {
		cp.Sections[i] = s.Clone()
	}
	return &cp
}

// PatchSection merges patch into the section with the given id, or appends
// a new section when none matches. Other sections are left untouched.
// Reports whether a new section was appended.
func (p *Page) PatchSection(id string, patch SectionPatch) bool {
	for i := range p.Sections {
		if p.Sections[i].ID == id {
			p.Sections[i] = patch.ApplyTo(p.Sections[i])
			return false
		}
	}
	p.Sections = append(p.Sections, patch.ApplyTo(PageSection{ID: id, Editable: true}))
	return true
}

func uniqueSectionIDs(value any) error {
	sections, _ := value.([]PageSection)
	seen := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		if _, dup := seen[s.ID]; dup {
			return validation.NewError("validation_section_id_unique", "duplicate section id "+s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}
