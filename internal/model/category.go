package model

import "strings"

// categoryLabels maps raw Hebrew shelter-type tags to display labels.
// Matching is by substring because operators embed the type inside longer
// free-text values. Presentation-only: the aggregation core keeps the raw tag.
var categoryLabels = []struct {
	tag   string
	label string
}{
	{"חניון מחסה לציבור", "Паркинг-убежище"},
	{"מקלט ציבורי במוסדות חינוך", "Убежище (школа)"},
	{"מקלט פנימי בשטח בית ספר", "Убежище (школа)"},
	{"מקלט ציבורי נגיש", "Доступное убежище"},
	{"מקלט ציבורי", "Общественное убежище"},
	{"מקלט בשטח חניון", "Убежище (парковка)"},
	{"מרחב מוגן קהילתי", "Общественное убежище"},
	{"מתקן מגון מני ילדים", "Убежище (дети)"},
	{"מתקן מגון רווחה", "Убежище (соцслужба)"},
	{`ממ"ד`, "Мамад"},
	{"ממד", "Мамад"},
}

// CategoryLabel resolves a raw source-specific type tag to a display label.
// Unknown non-empty tags pass through unchanged; empty tags get the generic
// shelter label.
func CategoryLabel(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Убежище"
	}
	for _, c := range categoryLabels {
		if strings.Contains(raw, c.tag) {
			return c.label
		}
	}
	return raw
}
