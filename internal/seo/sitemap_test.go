// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"
)

func TestSitemapBuilderPages(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com/", "home")
	updatedAt := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	builder.AddPages([]Entry{
		{Slug: "home", UpdatedAt: updatedAt},
		{Slug: "about-us"},
	})

	if len(builder.urls) != 2 {
		t.Fatalf("urls length = %d, want 2", len(builder.urls))
	}

	home := builder.urls[0]
	if home.Loc != "https://example.com/" {
		t.Errorf("Loc = %q, want %q", home.Loc, "https://example.com/")
	}
	if home.Priority != "1.0" {
		t.Errorf("Priority = %q, want %q", home.Priority, "1.0")
	}
	if home.LastMod != "2025-01-15T10:00:00Z" {
		t.Errorf("LastMod = %q, want %q", home.LastMod, "2025-01-15T10:00:00Z")
	}

	about := builder.urls[1]
	if about.Loc != "https://example.com/p/about-us" {
		t.Errorf("Loc = %q, want %q", about.Loc, "https://example.com/p/about-us")
	}
	if about.LastMod != "" {
		t.Errorf("LastMod = %q, want empty for zero time", about.LastMod)
	}
}

func TestSitemapBuilderPosts(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com", "home")
	builder.AddPosts(nil)
	if len(builder.urls) != 0 {
		t.Fatalf("no posts should add no urls, got %d", len(builder.urls))
	}

	newest := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	builder.AddPosts([]Entry{
		{Slug: "second", UpdatedAt: newest},
		{Slug: "first", UpdatedAt: newest.Add(-24 * time.Hour)},
	})

	want := []string{
		"https://example.com/blog",
		"https://example.com/blog/second",
		"https://example.com/blog/first",
	}
	if len(builder.urls) != len(want) {
		t.Fatalf("urls length = %d, want %d", len(builder.urls), len(want))
	}
	for i, loc := range want {
		if builder.urls[i].Loc != loc {
			t.Errorf("urls[%d].Loc = %q, want %q", i, builder.urls[i].Loc, loc)
		}
	}
	if builder.urls[0].LastMod != "2025-03-01T00:00:00Z" {
		t.Errorf("blog index LastMod = %q", builder.urls[0].LastMod)
	}
}

func TestSitemapBuilderBuild(t *testing.T) {
	builder := NewSitemapBuilder("https://example.com", "home")
	builder.AddPages([]Entry{{Slug: "home"}, {Slug: "services"}})

	out, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	content := string(out)

	if !strings.HasPrefix(content, xml.Header) {
		t.Error("Build() should start with the XML header")
	}
	if !strings.Contains(content, `xmlns="`+XMLNamespace+`"`) {
		t.Error("Build() should contain the sitemap namespace")
	}

	var parsed Sitemap
	if err := xml.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	if len(parsed.URLs) != 2 {
		t.Errorf("parsed %d urls, want 2", len(parsed.URLs))
	}
}

func TestSitemapBuilderBuildEmpty(t *testing.T) {
	out, err := NewSitemapBuilder("https://example.com", "home").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(string(out), "<urlset") {
		t.Error("empty sitemap should still contain urlset")
	}
}
