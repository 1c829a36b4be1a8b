package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/homefront-tools/shelter-cli/internal/config"
	"github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/model"
	"github.com/homefront-tools/shelter-cli/internal/resilience"
)

// searchKeywords are prefixed to each locality name to widen recall against
// a search index with no structured geo-filtering.
var searchKeywords = []string{
	"מקלט ציבורי",
	"מקלט",
	"מרחב מוגן",
}

// Reprojector maps local planar grid coordinates to WGS84. When nil the
// connector is disabled wholesale and reports zero results — bad
// coordinates must never enter the record stream.
type Reprojector func(easting, northing float64) (lat, lon float64)

// GovmapSource searches the national geocoding index by locality name.
// Hits carry Israeli TM coordinates and are reprojected to WGS84. Full
// per-place result sets are cached unfiltered; the caller's radius is
// applied after the cache read, so one fetch serves every later radius.
type GovmapSource struct {
	httpClient *http.Client
	baseURL    string
	resolver   CandidateResolver
	cache      *PlaceCache
	reproject  Reprojector
	limiter    *rate.Limiter
}

// NewGovmap creates the national-search connector.
func NewGovmap(cfg config.GovmapConfig, resolver CandidateResolver, cache *PlaceCache, reproject Reprojector) *GovmapSource {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps == 0 {
		rps = 2
	}
	return &GovmapSource{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		resolver:   resolver,
		cache:      cache,
		reproject:  reproject,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Name implements Source.
func (s *GovmapSource) Name() string { return "govmap" }

// Kind implements Source.
func (s *GovmapSource) Kind() model.SourceKind { return model.SourceNationalSearch }

// Fetch implements Source. An unresolvable place degrades to zero results;
// the other connectors still run.
func (s *GovmapSource) Fetch(ctx context.Context, lat, lon float64, radiusM int) ([]model.Facility, error) {
	if s.reproject == nil {
		zap.L().Debug("govmap: no reprojection available, connector disabled")
		return nil, nil
	}

	names := s.resolver.Resolve(ctx, lat, lon)
	if len(names) == 0 {
		zap.L().Debug("govmap: no place candidates, skipping",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
		return nil, nil
	}

	var searched, failed int
	merged := make(map[string]model.Facility)
	for _, name := range names {
		recs, ok := s.cache.Get(name)
		if !ok {
			searched++
			fetched, err := s.searchPlace(ctx, name)
			if err != nil {
				failed++
				zap.L().Warn("govmap: place search failed",
					zap.String("place", name),
					zap.Error(err),
				)
				continue // do not cache failures
			}
			s.cache.Put(name, fetched)
			recs = fetched
		}
		for id, rec := range recs {
			merged[id] = rec
		}
	}

	if searched > 0 && failed == searched && len(merged) == 0 {
		return nil, eris.Errorf("govmap: all %d place searches failed", searched)
	}

	var records []model.Facility
	for _, rec := range merged {
		if geo.Distance(lat, lon, rec.Lat, rec.Lon) <= float64(radiusM) {
			records = append(records, rec)
		}
	}
	return records, nil
}

// govmapResponse is the subset of the search-service response we consume.
type govmapResponse struct {
	Results []struct {
		ID    string  `json:"id"`
		X     float64 `json:"x"` // ITM easting
		Y     float64 `json:"y"` // ITM northing
		Label string  `json:"label"`
	} `json:"results"`
}

// searchPlace runs every keyword-prefixed search for one locality and
// returns the full result set keyed by record ID, unfiltered by radius.
func (s *GovmapSource) searchPlace(ctx context.Context, place string) (map[string]model.Facility, error) {
	recs := make(map[string]model.Facility)
	var lastErr error
	var failures int

	for _, keyword := range searchKeywords {
		hits, err := s.search(ctx, keyword+" "+place)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		for _, rec := range hits {
			recs[rec.ID] = rec
		}
	}

	if failures == len(searchKeywords) {
		return nil, eris.Wrap(lastErr, "govmap: every keyword search failed")
	}
	return recs, nil
}

// search issues one text search and normalizes the hits.
func (s *GovmapSource) search(ctx context.Context, text string) ([]model.Facility, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "govmap: rate limit")
	}
	body, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]byte, error) {
		params := url.Values{"searchText": {text}}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, eris.Wrap(err, "govmap: build request")
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "govmap: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("govmap: status %d", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	var gr govmapResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, eris.Wrap(err, "govmap: parse response")
	}

	var records []model.Facility
	for _, hit := range gr.Results {
		lat, lon := s.reproject(hit.X, hit.Y)
		if err := geo.ValidateCoords(lat, lon); err != nil {
			continue
		}

		rawID := hit.ID
		if rawID == "" {
			// The index does not always carry stable IDs; rounded grid
			// coordinates identify the same feature across fetches.
			rawID = fmt.Sprintf("%d-%d", int(hit.X), int(hit.Y))
		}

		records = append(records, model.Facility{
			ID:         model.RecordID(model.SourceNationalSearch, rawID),
			Lat:        lat,
			Lon:        lon,
			Address:    hit.Label,
			SourceKind: model.SourceNationalSearch,
		})
	}
	return records, nil
}
