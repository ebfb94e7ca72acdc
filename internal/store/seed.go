// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/theme"
)

// DefaultAdminName is the display name of the seeded administrator.
const DefaultAdminName = "Administrator"

// SeedConfig holds the seeded administrator's credentials.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Seed creates initial data: the administrator, the home page and the
// default theme. Each part is skipped when it already exists, so Seed is
// safe to run on every start.
func Seed(ctx context.Context, ds docstore.Store, cfg SeedConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AdminName == "" {
		cfg.AdminName = DefaultAdminName
	}

	dir := auth.NewDirectory(ds, logger)
	_, err := dir.CreateUser(ctx, auth.NewUser{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     cfg.AdminName,
		Role:     model.RoleAdmin,
	})
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		logger.Info("admin user already exists, skipping", "email", cfg.AdminEmail)
	case err != nil:
		return fmt.Errorf("seeding admin user: %w", err)
	}

	repo := pages.NewRepository(ds, logger)
	if _, err := repo.CreatePage(ctx, HomePage()); err != nil {
		if !errors.Is(err, pages.ErrSlugTaken) {
			return fmt.Errorf("seeding home page: %w", err)
		}
		logger.Info("home page already exists, skipping")
	} else {
		logger.Info("seeded home page")
	}

	themes := theme.NewRegistry(ds, logger)
	existing, err := themes.List(ctx)
	if err != nil {
		return fmt.Errorf("seeding theme: %w", err)
	}
	if len(existing) == 0 {
		t, err := themes.Create(ctx, model.DefaultTheme())
		if err != nil {
			return fmt.Errorf("seeding theme: %w", err)
		}
		if err := themes.Activate(ctx, t.ID); err != nil {
			return fmt.Errorf("activating seeded theme: %w", err)
		}
	}

	return nil
}

// HomePage is the page created for a fresh site.
func HomePage() model.Page {
	return model.Page{
		Slug:           "home",
		Title:          "Home",
		SEOTitle:       "Study abroad with confidence",
		SEODescription: "Admissions, visa and scholarship guidance for international students.",
		Published:      true,
		Sections: []model.PageSection{
			{ID: "hero-heading", Type: model.SectionHeading, Content: "Your path to studying abroad", Editable: true},
			{ID: "hero-subheading", Type: model.SectionParagraph, Content: "Personal guidance from university shortlist to visa approval.", Editable: true},
			{ID: "hero-image", Type: model.SectionImage, Editable: true, Metadata: map[string]any{
				model.MetaImageURL: "/static/hero.jpg",
				model.MetaImageAlt: "Students on campus",
			}},
			{ID: "hero-cta", Type: model.SectionCTA, Content: "Book a free consultation", Editable: true, Metadata: map[string]any{
				model.MetaCTAText: "Book now",
				model.MetaCTALink: "/p/contact",
			}},
		},
	}
}
