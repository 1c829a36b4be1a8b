package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandVariants_Empty(t *testing.T) {
	assert.Empty(t, ExpandVariants(nil))
	assert.Empty(t, ExpandVariants([]string{}))
}

func TestExpandVariants_SpellingPairs(t *testing.T) {
	out := ExpandVariants([]string{"פתח תקווה"})
	assert.Equal(t, "פתח תקווה", out[0])
	assert.Contains(t, out, "פתח תקוה")
}

func TestExpandVariants_BothDirections(t *testing.T) {
	out := ExpandVariants([]string{"קרית אונו"})
	assert.Contains(t, out, "קריית אונו")

	out = ExpandVariants([]string{"קריית שמונה"})
	assert.Contains(t, out, "קרית שמונה")
}

func TestExpandVariants_DashForms(t *testing.T) {
	out := ExpandVariants([]string{"תל אביב-יפו"})
	assert.Contains(t, out, "תל אביב יפו")

	out = ExpandVariants([]string{"גבעת שמואל"})
	assert.Contains(t, out, "גבעת-שמואל")
}

func TestExpandVariants_NoDuplicates(t *testing.T) {
	out := ExpandVariants([]string{"פתח תקווה", "פתח תקוה"})

	seen := make(map[string]int)
	for _, n := range out {
		seen[n]++
	}
	for n, count := range seen {
		assert.Equal(t, 1, count, "duplicate candidate %q", n)
	}
	// Originals keep their positions ahead of generated variants.
	assert.Equal(t, "פתח תקווה", out[0])
	assert.Equal(t, "פתח תקוה", out[1])
}

func TestExpandVariants_PreservesOrder(t *testing.T) {
	out := ExpandVariants([]string{"רמת גן", "גבעתיים"})
	assert.Equal(t, "רמת גן", out[0])
	assert.Equal(t, "גבעתיים", out[1])
}
