// Package geo provides great-circle distance, bounding-box checks and
// Israeli Transverse Mercator reprojection used by the shelter connectors.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusMeters is the mean sphere radius used by Distance.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two WGS84
// coordinates using the haversine formula. Both ranking and dedup depend on
// this, so it intentionally mirrors the reference formula exactly.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	sinDp := math.Sin(dp / 2)
	sinDl := math.Sin(dl / 2)
	a := sinDp*sinDp + math.Cos(p1)*math.Cos(p2)*sinDl*sinDl
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidateCoords rejects coordinates outside ±90/±180 or NaN. Records that
// fail this check are dropped during parsing, never propagated.
func ValidateCoords(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return eris.Errorf("geo: invalid latitude %f", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return eris.Errorf("geo: invalid longitude %f", lon)
	}
	return nil
}

// BoundingBox is an approximate lat/lon coverage rectangle for an endpoint.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Expand returns the box grown by margin degrees on every side. Regional
// endpoints are gated on boxes expanded by ~0.05 degrees (~5 km) to absorb
// imprecision in the registry annotations.
func (b BoundingBox) Expand(margin float64) BoundingBox {
	return BoundingBox{
		MinLat: b.MinLat - margin,
		MinLon: b.MinLon - margin,
		MaxLat: b.MaxLat + margin,
		MaxLon: b.MaxLon + margin,
	}
}
