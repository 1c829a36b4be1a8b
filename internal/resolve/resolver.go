// Package resolve turns a coordinate into candidate locality names used as
// text-search keys by the national-search connector.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/homefront-tools/shelter-cli/internal/config"
	"github.com/homefront-tools/shelter-cli/internal/geo"
)

// localityFields are the Nominatim address components examined for a
// settlement name, in the order they are trusted.
var localityFields = []string{
	"city", "town", "village", "suburb", "neighbourhood", "hamlet", "municipality",
}

// administrativeMarkers identify values that name a regional council or
// district rather than a settlement; those are skipped.
var administrativeMarkers = []string{
	"מועצה אזורית",
	"מחוז",
	"נפת",
}

// Resolver reverse-geocodes a coordinate to candidate locality names with a
// populated-place fallback. It never fails past its boundary: any transport
// or parse error degrades to a shorter (possibly empty) candidate list.
type Resolver struct {
	httpClient       *http.Client
	nominatimBaseURL string
	overpassBaseURL  string
	language         string
	limiter          *rate.Limiter
	fallbackRadiusM  int
	fallbackMax      int
}

// New creates a Resolver from configuration.
func New(cfg config.ResolverConfig, overpass config.OverpassConfig) *Resolver {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps == 0 {
		rps = 1
	}
	fallbackRadius := cfg.FallbackRadiusM
	if fallbackRadius == 0 {
		fallbackRadius = 3000
	}
	fallbackMax := cfg.FallbackMax
	if fallbackMax == 0 {
		fallbackMax = 3
	}
	return &Resolver{
		httpClient:       &http.Client{Timeout: timeout},
		nominatimBaseURL: cfg.NominatimBaseURL,
		overpassBaseURL:  overpass.BaseURL,
		language:         cfg.Language,
		limiter:          rate.NewLimiter(rate.Limit(rps), 1),
		fallbackRadiusM:  fallbackRadius,
		fallbackMax:      fallbackMax,
	}
}

// WithHTTPClient sets a custom HTTP client, used by tests.
func (r *Resolver) WithHTTPClient(hc *http.Client) *Resolver {
	r.httpClient = hc
	return r
}

// Resolve returns an ordered, deduplicated list of candidate locality names
// for the coordinate, expanded with known orthographic variants. An empty
// list means the national-search connector should be skipped for this query.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) []string {
	candidates, err := r.reverseGeocode(ctx, lat, lon)
	if err != nil {
		zap.L().Warn("resolve: reverse geocode failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
	}

	if len(candidates) == 0 {
		fallback, fbErr := r.nearestSettlements(ctx, lat, lon)
		if fbErr != nil {
			zap.L().Warn("resolve: settlement fallback failed",
				zap.Float64("lat", lat),
				zap.Float64("lon", lon),
				zap.Error(fbErr),
			)
		}
		candidates = fallback
	}

	return ExpandVariants(candidates)
}

// nominatimResponse is the subset of the jsonv2 reverse-geocode response we
// consume.
type nominatimResponse struct {
	Address map[string]string `json:"address"`
}

// reverseGeocode queries Nominatim and extracts settlement-tier names in
// field order, skipping administrative-district labels.
func (r *Resolver) reverseGeocode(ctx context.Context, lat, lon float64) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "resolve: nominatim rate limit")
	}

	params := url.Values{
		"format": {"jsonv2"},
		"lat":    {fmt.Sprintf("%f", lat)},
		"lon":    {fmt.Sprintf("%f", lon)},
		"zoom":   {"14"},
	}
	if r.language != "" {
		params.Set("accept-language", r.language)
	}

	reqURL := r.nominatimBaseURL + "/reverse?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: nominatim build request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("resolve: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: nominatim read body")
	}

	var nr nominatimResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, eris.Wrap(err, "resolve: nominatim parse response")
	}

	var names []string
	for _, field := range localityFields {
		v := strings.TrimSpace(nr.Address[field])
		if v == "" || isAdministrative(v) {
			continue
		}
		names = appendUnique(names, v)
	}
	return names, nil
}

// isAdministrative reports whether a value names a district or regional
// council rather than a settlement.
func isAdministrative(name string) bool {
	for _, marker := range administrativeMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// overpassPlaceResponse is the subset of an Overpass JSON response used by
// the settlement fallback.
type overpassPlaceResponse struct {
	Elements []struct {
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// nearestSettlements finds populated-place nodes near the coordinate when
// reverse geocoding yields nothing usable, ordered by distance.
func (r *Resolver) nearestSettlements(ctx context.Context, lat, lon float64) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "resolve: overpass rate limit")
	}

	query := fmt.Sprintf(
		`[out:json][timeout:10];node["place"~"^(city|town|village|hamlet|suburb|neighbourhood)$"](around:%d,%f,%f);out body;`,
		r.fallbackRadiusM, lat, lon,
	)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.overpassBaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "resolve: overpass build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: overpass request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("resolve: overpass returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: overpass read body")
	}

	var or overpassPlaceResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return nil, eris.Wrap(err, "resolve: overpass parse response")
	}

	type place struct {
		name     string
		distance float64
	}
	var places []place
	for _, el := range or.Elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			continue
		}
		if err := geo.ValidateCoords(el.Lat, el.Lon); err != nil {
			continue
		}
		places = append(places, place{
			name:     name,
			distance: geo.Distance(lat, lon, el.Lat, el.Lon),
		})
	}
	sort.Slice(places, func(i, j int) bool { return places[i].distance < places[j].distance })

	var names []string
	for _, p := range places {
		names = appendUnique(names, p.name)
		if len(names) >= r.fallbackMax {
			break
		}
	}
	return names, nil
}

// appendUnique appends v unless already present, preserving order.
func appendUnique(names []string, v string) []string {
	for _, n := range names {
		if n == v {
			return names
		}
	}
	return append(names, v)
}

const userAgent = "shelter-cli/1.0"
