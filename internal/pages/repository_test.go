// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pages_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/testutil"
)

func newRepo(t *testing.T) (*pages.Repository, *docstore.SQLStore) {
	t.Helper()
	s := testutil.TestStore(t)
	return pages.NewRepository(s, testutil.TestLoggerSilent()), s
}

func homePage() model.Page {
	return model.Page{
		Slug:      "home",
		Title:     "Home",
		Published: true,
		Sections: []model.PageSection{
			{ID: "hero-heading", Type: model.SectionHeading, Content: "Welcome", Editable: true},
			{ID: "hero-image", Type: model.SectionImage, Editable: true, Metadata: map[string]any{
				model.MetaImageURL: "https://example.com/a.jpg",
				model.MetaImageAlt: "campus",
			}},
			{ID: "intro", Type: model.SectionParagraph, Content: "Hello", Editable: false},
		},
	}
}

func TestFetchPageBySlug(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	created, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	got, err := repo.FetchPageBySlug(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Sections, 3)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.FetchPageBySlug(ctx, "missing")
	assert.ErrorIs(t, err, pages.ErrPageNotFound)
}

func TestCreatePageRejectsDuplicateSlug(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	_, err = repo.CreatePage(ctx, homePage())
	assert.ErrorIs(t, err, pages.ErrSlugTaken)
}

func TestFetchPageBySlugPicksOldestOnDuplicate(t *testing.T) {
	repo, s := newRepo(t)
	ctx := context.Background()

	// Bypass the repository's uniqueness check.
	first := homePage()
	first.Title = "first"
	firstDoc, err := s.Add(ctx, docstore.CollectionPages, first)
	require.NoError(t, err)
	second := homePage()
	second.Title = "second"
	_, err = s.Add(ctx, docstore.CollectionPages, second)
	require.NoError(t, err)

	got, err := repo.FetchPageBySlug(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, firstDoc.ID, got.ID)
	assert.Equal(t, "first", got.Title)
}

func TestUpdateSectionContentIsolation(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateSectionContent(ctx, page.ID, "hero-heading", "Study abroad"))

	got, err := repo.FetchPage(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 3)

	heading, ok := got.Section("hero-heading")
	require.True(t, ok)
	assert.Equal(t, "Study abroad", heading.Content)
	assert.Equal(t, model.SectionHeading, heading.Type)
	require.NotNil(t, heading.UpdatedAt)

	image, _ := got.Section("hero-image")
	assert.Equal(t, "https://example.com/a.jpg", image.ImageURL())
	assert.Equal(t, "campus", image.ImageAlt())
	assert.Nil(t, image.UpdatedAt)

	intro, _ := got.Section("intro")
	assert.Equal(t, "Hello", intro.Content)
	assert.False(t, intro.Editable)

	assert.True(t, got.UpdatedAt.After(page.UpdatedAt) || got.UpdatedAt.Equal(page.UpdatedAt))
}

func TestUpdateSectionAppendsMissing(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateSectionContent(ctx, page.ID, "footer-note", "Thanks"))

	got, err := repo.FetchPage(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 4)
	assert.Equal(t, "footer-note", got.Sections[3].ID)
	assert.Equal(t, "Thanks", got.Sections[3].Content)
	assert.True(t, got.Sections[3].Editable)
}

func TestUpdateSectionImageKeepsAltWhenOmitted(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateSectionImage(ctx, page.ID, "hero-image", "https://example.com/b.jpg", nil))

	got, err := repo.FetchPage(ctx, page.ID)
	require.NoError(t, err)
	image, _ := got.Section("hero-image")
	assert.Equal(t, "https://example.com/b.jpg", image.ImageURL())
	assert.Equal(t, "campus", image.ImageAlt())

	alt := "library"
	require.NoError(t, repo.UpdateSectionImage(ctx, page.ID, "hero-image", "https://example.com/b.jpg", &alt))
	got, err = repo.FetchPage(ctx, page.ID)
	require.NoError(t, err)
	image, _ = got.Section("hero-image")
	assert.Equal(t, "library", image.ImageAlt())
}

func TestUpdateSectionVisibilityToggle(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	patch := model.SectionPatch{Metadata: map[string]any{model.MetaActive: false}}
	require.NoError(t, repo.UpdateSection(ctx, page.ID, "intro", patch))

	got, err := repo.FetchPage(ctx, page.ID)
	require.NoError(t, err)
	intro, _ := got.Section("intro")
	assert.False(t, intro.IsActive())
	assert.Equal(t, "Hello", intro.Content)
}

func TestUpdateSectionErrors(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	err := repo.UpdateSectionContent(ctx, "no-such-page", "hero-heading", "x")
	assert.ErrorIs(t, err, pages.ErrPageNotFound)

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)
	err = repo.UpdateSectionContent(ctx, page.ID, "", "x")
	assert.ErrorIs(t, err, pages.ErrEmptySectionID)
}

func TestSequentialSavesBothPersist(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateSectionContent(ctx, page.ID, "hero-heading", "A"))
	require.NoError(t, repo.UpdateSectionContent(ctx, page.ID, "intro", "B"))

	got, err := repo.FetchPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.SectionOr("hero-heading", model.PageSection{}).Content)
	assert.Equal(t, "B", got.SectionOr("intro", model.PageSection{}).Content)
}

func TestConcurrentSavesKeepAtLeastOne(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = repo.UpdateSectionContent(ctx, page.ID, "hero-heading", "A")
	}()
	go func() {
		defer wg.Done()
		errs[1] = repo.UpdateSectionContent(ctx, page.ID, "intro", "B")
	}()
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := repo.FetchPage(ctx, page.ID)
	require.NoError(t, err)
	a := got.SectionOr("hero-heading", model.PageSection{}).Content == "A"
	b := got.SectionOr("intro", model.PageSection{}).Content == "B"
	assert.True(t, a || b, "at least one concurrent save survives")
	assert.Len(t, got.Sections, 3)
}

func TestListPages(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)
	draft := model.Page{Slug: "draft", Title: "Draft"}
	_, err = repo.CreatePage(ctx, draft)
	require.NoError(t, err)

	all, err := repo.ListAllPages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "home", all[0].Slug)

	published, err := repo.ListPublishedPages(ctx)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "home", published[0].Slug)
}

func TestReplaceAndDeletePage(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)
	other, err := repo.CreatePage(ctx, model.Page{Slug: "about", Title: "About"})
	require.NoError(t, err)

	page.Title = "Home v2"
	replaced, err := repo.ReplacePage(ctx, *page)
	require.NoError(t, err)
	assert.Equal(t, "Home v2", replaced.Title)
	assert.Equal(t, page.CreatedAt, replaced.CreatedAt)

	other.Slug = "home"
	_, err = repo.ReplacePage(ctx, *other)
	assert.ErrorIs(t, err, pages.ErrSlugTaken)

	require.NoError(t, repo.DeletePage(ctx, page.ID))
	_, err = repo.FetchPage(ctx, page.ID)
	assert.ErrorIs(t, err, pages.ErrPageNotFound)
}

func TestSubscribeToPageBySlug(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		calls []*model.Page
	)
	unsubscribe := repo.SubscribeToPageBySlug("home", func(p *model.Page, err error) {
		assert.NoError(t, err)
		mu.Lock()
		calls = append(calls, p)
		mu.Unlock()
	})
	defer unsubscribe()

	latest := func() (*model.Page, int) {
		mu.Lock()
		defer mu.Unlock()
		if len(calls) == 0 {
			return nil, 0
		}
		return calls[len(calls)-1], len(calls)
	}

	require.Eventually(t, func() bool {
		_, n := latest()
		return n >= 1
	}, time.Second, 5*time.Millisecond)
	p, _ := latest()
	assert.Nil(t, p, "no page yet")

	page, err := repo.CreatePage(ctx, homePage())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p, _ := latest()
		return p != nil && p.ID == page.ID
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, repo.UpdateSectionContent(ctx, page.ID, "hero-heading", "Live"))
	require.Eventually(t, func() bool {
		p, _ := latest()
		return p != nil && p.SectionOr("hero-heading", model.PageSection{}).Content == "Live"
	}, time.Second, 5*time.Millisecond)
}
