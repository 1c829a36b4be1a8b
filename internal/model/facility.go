package model

import (
	"fmt"
	"strings"
)

// SourceKind identifies which provider a facility record came from.
// It is used for priority resolution during dedup and never shown to callers.
type SourceKind string

const (
	SourceCityAuthoritative SourceKind = "city-authoritative"
	SourceRegional          SourceKind = "regional"
	SourceNationalSearch    SourceKind = "national-search"
	SourceOpenData          SourceKind = "open-data"
)

// DefaultPriorityOrder lists source kinds from highest to lowest dedup
// priority. The order is a policy choice, overridable via config.
var DefaultPriorityOrder = []SourceKind{
	SourceCityAuthoritative,
	SourceRegional,
	SourceNationalSearch,
	SourceOpenData,
}

// Facility is the normalized representation of one physical shelter
// from any provider.
type Facility struct {
	ID             string     `json:"id"`
	Lat            float64    `json:"lat"`
	Lon            float64    `json:"lon"`
	Address        string     `json:"address"`
	Name           string     `json:"name"`
	Category       string     `json:"category"` // raw source-specific type tag
	Hours          string     `json:"hours,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	DistanceMeters int        `json:"distance_meters"` // recomputed per query
	SourceKind     SourceKind `json:"-"`
}

// RecordID builds a globally unique record ID prefixed by source kind so
// identical raw IDs from different providers never collide.
func RecordID(kind SourceKind, rawID string) string {
	return fmt.Sprintf("%s:%s", kind, rawID)
}

// Label returns a display label for the facility: name, then address, then
// a canonical fallback when both are empty.
func (f Facility) Label() string {
	if s := strings.TrimSpace(f.Name); s != "" {
		return s
	}
	if s := strings.TrimSpace(f.Address); s != "" {
		return s
	}
	return "адрес не указан"
}
