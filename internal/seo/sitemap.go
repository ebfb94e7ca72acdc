// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds sitemap.xml and robots.txt for the public site.
package seo

import (
	"encoding/xml"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Change frequencies used by the site.
const (
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// Entry is a page or post to list.
type Entry struct {
	Slug      string
	UpdatedAt time.Time
}

// SitemapBuilder builds sitemap XML from pages and blog posts.
type SitemapBuilder struct {
	siteURL  string
	homeSlug string
	urls     []SitemapURL
}

// NewSitemapBuilder creates a new sitemap builder. The page whose slug is
// homeSlug is listed as the site root rather than under /p/.
func NewSitemapBuilder(siteURL, homeSlug string) *SitemapBuilder {
	return &SitemapBuilder{
		siteURL:  strings.TrimSuffix(siteURL, "/"),
		homeSlug: homeSlug,
		urls:     make([]SitemapURL, 0),
	}
}

// AddHomepage adds the site root.
func (b *SitemapBuilder) AddHomepage(updatedAt time.Time) {
	b.add(b.siteURL+"/", updatedAt, ChangeFreqDaily, "1.0")
}

// AddPages adds published pages.
func (b *SitemapBuilder) AddPages(pages []Entry) {
	for _, p := range pages {
		if p.Slug == b.homeSlug {
			b.AddHomepage(p.UpdatedAt)
			continue
		}
		b.add(b.siteURL+"/p/"+p.Slug, p.UpdatedAt, ChangeFreqWeekly, "0.8")
	}
}

// AddPosts adds the blog index and published posts.
func (b *SitemapBuilder) AddPosts(posts []Entry) {
	if len(posts) == 0 {
		return
	}
	b.add(b.siteURL+"/blog", posts[0].UpdatedAt, ChangeFreqDaily, "0.7")
	for _, p := range posts {
		b.add(b.siteURL+"/blog/"+p.Slug, p.UpdatedAt, ChangeFreqMonthly, "0.6")
	}
}

func (b *SitemapBuilder) add(loc string, updatedAt time.Time, freq ChangeFreq, priority string) {
	url := SitemapURL{Loc: loc, ChangeFreq: freq, Priority: priority}
	if !updatedAt.IsZero() {
		url.LastMod = updatedAt.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, url)
}

// Build generates the sitemap XML.
func (b *SitemapBuilder) Build() ([]byte, error) {
	sitemap := Sitemap{
		XMLNS: XMLNamespace,
		URLs:  b.urls,
	}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(output, xmlBytes...), nil
}
