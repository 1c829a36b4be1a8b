package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_Zero(t *testing.T) {
	assert.Zero(t, Distance(32.0853, 34.7818, 32.0853, 34.7818))
}

func TestDistance_Symmetric(t *testing.T) {
	d1 := Distance(32.0853, 34.7818, 31.7683, 35.2137)
	d2 := Distance(31.7683, 35.2137, 32.0853, 34.7818)
	assert.Equal(t, d1, d2)
}

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expectedMeters         float64
	}{
		// One degree of arc on the reference sphere: 2*pi*R/360.
		{"one degree longitude at equator", 0, 0, 0, 1, 111194.93},
		{"one degree latitude", 0, 0, 1, 0, 111194.93},
		{"big ben to eiffel tower", 51.5007, -0.1246, 48.8584, 2.2945, 340500},
		{"tel aviv to jerusalem", 32.0853, 34.7818, 31.7683, 35.2137, 53900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InEpsilon(t, tt.expectedMeters, d, 0.01)
		})
	}
}

func TestValidateCoords(t *testing.T) {
	assert.NoError(t, ValidateCoords(32.08, 34.78))
	assert.NoError(t, ValidateCoords(-90, 180))
	assert.Error(t, ValidateCoords(91, 34.78))
	assert.Error(t, ValidateCoords(-90.01, 0))
	assert.Error(t, ValidateCoords(32.08, 180.5))
	assert.Error(t, ValidateCoords(32.08, -181))
}

func TestBoundingBox(t *testing.T) {
	telAviv := BoundingBox{MinLat: 32.03, MinLon: 34.74, MaxLat: 32.15, MaxLon: 34.85}

	assert.True(t, telAviv.Contains(32.0853, 34.7818))
	assert.False(t, telAviv.Contains(32.794, 34.9896)) // Haifa

	// A point just outside the box falls inside after margin expansion.
	assert.False(t, telAviv.Contains(32.17, 34.80))
	assert.True(t, telAviv.Expand(0.05).Contains(32.17, 34.80))
}
