package source

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/homefront-tools/shelter-cli/internal/config"
	"github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/model"
)

// telAvivCoverage bounds the municipal shelter layer. Queries outside it
// skip the connector entirely.
var telAvivCoverage = geo.BoundingBox{MinLat: 32.02, MinLon: 34.73, MaxLat: 32.15, MaxLon: 34.86}

// TelAvivSource queries the city's authoritative shelter layer. The
// upstream service has a known degradation mode where spatial filters
// return zero features; the connector then falls back to a bounded full
// scan filtered client-side.
type TelAvivSource struct {
	httpClient  *http.Client
	url         string
	coverage    geo.BoundingBox
	spatialMax  int
	fullScanMax int
}

// NewTelAviv creates the city-authoritative connector.
func NewTelAviv(cfg config.TelAvivConfig) *TelAvivSource {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	spatialMax := cfg.SpatialMax
	if spatialMax == 0 {
		spatialMax = 100
	}
	fullScanMax := cfg.FullScanMax
	if fullScanMax == 0 {
		fullScanMax = 500
	}
	return &TelAvivSource{
		httpClient:  &http.Client{Timeout: timeout},
		url:         cfg.URL,
		coverage:    telAvivCoverage,
		spatialMax:  spatialMax,
		fullScanMax: fullScanMax,
	}
}

// Name implements Source.
func (s *TelAvivSource) Name() string { return "telaviv" }

// Kind implements Source.
func (s *TelAvivSource) Kind() model.SourceKind { return model.SourceCityAuthoritative }

// Covers reports whether the query point falls inside the layer's coverage.
func (s *TelAvivSource) Covers(lat, lon float64) bool {
	return s.coverage.Contains(lat, lon)
}

// Fetch implements Source.
func (s *TelAvivSource) Fetch(ctx context.Context, lat, lon float64, radiusM int) ([]model.Facility, error) {
	if !s.Covers(lat, lon) {
		return nil, nil
	}

	ar, err := queryArcGIS(ctx, s.httpClient, s.url, spatialQueryParams(lat, lon, radiusM, s.spatialMax))
	if err != nil {
		return nil, err
	}

	features := ar.Features
	if len(features) == 0 {
		zap.L().Warn("telaviv: spatial query returned 0 features, trying full scan")
		full, scanErr := queryArcGIS(ctx, s.httpClient, s.url, fullScanParams(s.fullScanMax))
		if scanErr != nil {
			return nil, scanErr
		}
		features = full.Features
	}

	var records []model.Facility
	for _, f := range features {
		rec, ok := parseArcGISFeature(model.SourceCityAuthoritative, f)
		if !ok {
			continue
		}
		// The full-scan path returns the whole table; the radius filter
		// happens client-side either way, which also guards against
		// endpoints that ignore the distance parameter.
		if geo.Distance(lat, lon, rec.Lat, rec.Lon) > float64(radiusM) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
