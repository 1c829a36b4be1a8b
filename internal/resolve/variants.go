package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// spellingPairs lists orthographic forms the reverse geocoder and the
// national search index are known to disagree on. Each pair generates a
// variant in both directions via substring replacement.
var spellingPairs = [][2]string{
	{"קריית", "קרית"}, // double-yod vs single-yod construct form
	{"תקווה", "תקוה"}, // plene vs defective vav
	{"נהרייה", "נהריה"},
	{"הרצלייה", "הרצליה"},
	{"מודיעין", "מודעין"},
}

// stripMarks removes combining marks (niqqud and cantillation) that some
// providers include in place names.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ExpandVariants appends known orthographic variants of each candidate name
// that are not already present, preserving the original order. The input is
// returned unchanged in the degenerate cases.
func ExpandVariants(names []string) []string {
	if len(names) == 0 {
		return names
	}

	out := make([]string, 0, len(names)*2)
	for _, n := range names {
		out = appendUnique(out, n)
	}

	for _, n := range names {
		for _, v := range variantsOf(n) {
			out = appendUnique(out, v)
		}
	}
	return out
}

// variantsOf generates the spelling variants for a single name.
func variantsOf(name string) []string {
	var variants []string

	// Combining-mark-free form.
	if plain, _, err := transform.String(stripMarks, name); err == nil && plain != name {
		variants = append(variants, plain)
	}

	// Dash and space forms: "תל אביב-יפו" vs "תל אביב יפו".
	if strings.Contains(name, "-") {
		variants = append(variants, strings.ReplaceAll(name, "-", " "))
	} else if strings.Contains(name, " ") {
		variants = append(variants, strings.ReplaceAll(name, " ", "-"))
	}

	// Known provider spelling disagreements, both directions.
	for _, pair := range spellingPairs {
		if strings.Contains(name, pair[0]) {
			variants = append(variants, strings.ReplaceAll(name, pair[0], pair[1]))
		}
		if strings.Contains(name, pair[1]) {
			variants = append(variants, strings.ReplaceAll(name, pair[1], pair[0]))
		}
	}

	return variants
}
