package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a community name into a URL-safe slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugCleaner.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "community"
	}
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	return slug
}

// UniqueSlug derives a slug from name, appending a numeric suffix until the
// taken predicate clears. taken is expected to hit the unique index, so the
// loop terminates quickly in practice.
func UniqueSlug(name string, taken func(slug string) bool) string {
	base := Slugify(name)
	slug := base
	for i := 2; taken(slug); i++ {
		slug = base + "-" + strconv.Itoa(i)
	}
	return slug
}
