// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Palette holds the theme colors.
type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Text       string `json:"text"`
}

// Validate checks every color is a hex value.
func (p Palette) Validate() error {
	color := []validation.Rule{validation.Required, validation.Match(hexColor)}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Primary, color...),
		validation.Field(&p.Secondary, color...),
		validation.Field(&p.Accent, color...),
		validation.Field(&p.Background, color...),
		validation.Field(&p.Surface, color...),
		validation.Field(&p.Text, color...),
	)
}

// Typography is the type scale.
type Typography struct {
	BodyFont    string  `json:"bodyFont"`
	HeadingFont string  `json:"headingFont"`
	BaseSize    int     `json:"baseSize"`   // px
	ScaleRatio  float64 `json:"scaleRatio"` // heading step multiplier
}

// Validate checks the type scale bounds.
func (t Typography) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.BodyFont, validation.Required),
		validation.Field(&t.HeadingFont, validation.Required),
		validation.Field(&t.BaseSize, validation.Required, validation.Min(10), validation.Max(32)),
		validation.Field(&t.ScaleRatio, validation.Required, validation.Min(1.0), validation.Max(2.0)),
	)
}

// Theme is a named palette and type scale. Exactly one theme is expected
// to be active at a time; this is maintained by convention, not enforced.
type Theme struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Palette    Palette    `json:"palette"`
	Typography Typography `json:"typography"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Validate checks the theme.
func (t Theme) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 80)),
		validation.Field(&t.Palette),
		validation.Field(&t.Typography),
	)
}

// DefaultTheme is used when no theme is active.
func DefaultTheme() Theme {
	return Theme{
		Name: "Default",
		Palette: Palette{
			Primary:    "#1d4ed8",
			Secondary:  "#0f766e",
			Accent:     "#f59e0b",
			Background: "#ffffff",
			Surface:    "#f8fafc",
			Text:       "#0f172a",
		},
		Typography: Typography{
			BodyFont:    "Inter, sans-serif",
			HeadingFont: "Poppins, sans-serif",
			BaseSize:    16,
			ScaleRatio:  1.25,
		},
	}
}
