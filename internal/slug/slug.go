// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package slug builds URL slugs for pages and blog posts.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug Make produces.
const MaxLength = 120

// maxSuffix bounds the numbered candidates Unique tries.
const maxSuffix = 100

var (
	invalidChars    = regexp.MustCompile(`[^a-z0-9-]+`)
	repeatedHyphens = regexp.MustCompile(`-{2,}`)
	validSlug       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Make converts a title such as "Étudier à l'étranger" into
// "etudier-a-letranger". Accents are folded; other non-ASCII letters are
// dropped.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, _ := transform.String(t, s)

	out = strings.ToLower(out)
	out = strings.Join(strings.Fields(out), "-")
	out = invalidChars.ReplaceAllString(out, "")
	out = repeatedHyphens.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-")

	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// Valid reports whether s is a lowercase hyphenated slug.
func Valid(s string) bool {
	return validSlug.MatchString(s)
}

// Unique returns base, or base with the lowest free "-N" suffix, according
// to taken.
func Unique(ctx context.Context, base string, taken func(ctx context.Context, candidate string) (bool, error)) (string, error) {
	if !Valid(base) {
		return "", fmt.Errorf("invalid slug %q", base)
	}
	candidate := base
	for n := 2; n <= maxSuffix+1; n++ {
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}
