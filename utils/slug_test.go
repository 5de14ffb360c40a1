package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "weekend-hikers", Slugify("Weekend Hikers"))
	assert.Equal(t, "caf-co", Slugify("  Café & Co!  "))
	assert.Equal(t, "community", Slugify("!!!"))
}

func TestUniqueSlug_AppendsNumericSuffix(t *testing.T) {
	taken := map[string]bool{
		"weekend-hikers":   true,
		"weekend-hikers-2": true,
	}
	slug := UniqueSlug("Weekend Hikers", func(s string) bool { return taken[s] })
	assert.Equal(t, "weekend-hikers-3", slug)
}

func TestUniqueSlug_NoCollision(t *testing.T) {
	slug := UniqueSlug("Fresh Name", func(string) bool { return false })
	assert.Equal(t, "fresh-name", slug)
}
