package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"golang.org/x/time/rate"

	"github.com/homefront-tools/shelter-cli/internal/config"
	ggeo "github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/model"
	"github.com/homefront-tools/shelter-cli/internal/resilience"
)

// shelterTagFilters are the tag combinations that identify a safety
// facility in the open dataset. Each filter is applied to nodes, ways and
// relations alike.
var shelterTagFilters = []string{
	`["amenity"="shelter"]["shelter_type"="public_bomb_shelter"]`,
	`["amenity"="shelter"]["shelter_type"="bomb_shelter"]`,
	`["emergency"="bomb_shelter"]`,
}

// OverpassSource queries the open geographic dataset with a single
// tag-filtered spatial query. Extended geometries contribute their centroid
// as the facility coordinate.
type OverpassSource struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewOverpass creates the open-data connector.
func NewOverpass(cfg config.OverpassConfig) *OverpassSource {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps == 0 {
		rps = 1
	}
	return &OverpassSource{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Name implements Source.
func (s *OverpassSource) Name() string { return "overpass" }

// Kind implements Source.
func (s *OverpassSource) Kind() model.SourceKind { return model.SourceOpenData }

// overpassElement is one feature from an Overpass JSON response. Nodes
// carry lat/lon directly; ways and relations carry geometry (with `out
// geom`) or a precomputed center.
type overpassElement struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Tags     map[string]string `json:"tags"`
	Center   *overpassPoint    `json:"center"`
	Geometry []overpassPoint   `json:"geometry"`
	Members  []struct {
		Geometry []overpassPoint `json:"geometry"`
	} `json:"members"`
}

type overpassPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassShelterResponse struct {
	Elements []overpassElement `json:"elements"`
}

// Fetch implements Source.
func (s *OverpassSource) Fetch(ctx context.Context, lat, lon float64, radiusM int) ([]model.Facility, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	var b strings.Builder
	b.WriteString("[out:json][timeout:20];(")
	for _, filter := range shelterTagFilters {
		for _, objType := range []string{"node", "way", "relation"} {
			fmt.Fprintf(&b, "%s%s(around:%d,%f,%f);", objType, filter, radiusM, lat, lon)
		}
	}
	b.WriteString(");out geom;")

	form := url.Values{"data": {b.String()}}
	body, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, eris.Wrap(err, "overpass: build request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", userAgent)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "overpass: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("overpass: status %d", resp.StatusCode)
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

	var or overpassShelterResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}

	var records []model.Facility
	for _, el := range or.Elements {
		if rec, ok := parseOverpassElement(el); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// parseOverpassElement normalizes one element, dropping anything without a
// resolvable coordinate.
func parseOverpassElement(el overpassElement) (model.Facility, bool) {
	lat, lon, ok := elementCoords(el)
	if !ok {
		return model.Facility{}, false
	}
	if err := ggeo.ValidateCoords(lat, lon); err != nil {
		return model.Facility{}, false
	}

	address := strings.TrimSpace(strings.TrimSpace(el.Tags["addr:street"]) + " " + strings.TrimSpace(el.Tags["addr:housenumber"]))
	category := el.Tags["shelter_type"]
	if category == "" {
		category = el.Tags["emergency"]
	}
	phone := el.Tags["phone"]
	if phone == "" {
		phone = el.Tags["contact:phone"]
	}

	return model.Facility{
		ID:         model.RecordID(model.SourceOpenData, fmt.Sprintf("%s/%d", el.Type, el.ID)),
		Lat:        lat,
		Lon:        lon,
		Address:    address,
		Name:       el.Tags["name"],
		Category:   category,
		Hours:      el.Tags["opening_hours"],
		Phone:      phone,
		Notes:      el.Tags["description"],
		SourceKind: model.SourceOpenData,
	}, true
}

// elementCoords resolves an element's coordinate: nodes directly, extended
// geometries via their centroid (or the server-computed center if present).
func elementCoords(el overpassElement) (lat, lon float64, ok bool) {
	switch el.Type {
	case "node":
		return el.Lat, el.Lon, el.Lat != 0 || el.Lon != 0
	case "way", "relation":
		if el.Center != nil {
			return el.Center.Lat, el.Center.Lon, true
		}
		pts := el.Geometry
		for _, m := range el.Members {
			pts = append(pts, m.Geometry...)
		}
		return centroid(pts)
	default:
		return 0, 0, false
	}
}

// centroid computes the centroid of a point sequence: closed rings as an
// area centroid, open paths as a line centroid.
func centroid(pts []overpassPoint) (lat, lon float64, ok bool) {
	if len(pts) == 0 {
		return 0, 0, false
	}
	if len(pts) == 1 {
		return pts[0].Lat, pts[0].Lon, true
	}

	coords := make([]geom.Coord, len(pts))
	for i, p := range pts {
		coords[i] = geom.Coord{p.Lon, p.Lat}
	}

	closed := len(pts) >= 4 && pts[0] == pts[len(pts)-1]
	if closed {
		poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{coords})
		c := xy.PolygonsCentroid(poly)
		return c[1], c[0], true
	}
	line := geom.NewLineString(geom.XY).MustSetCoords(coords)
	c := xy.LinesCentroid(line)
	return c[1], c[0], true
}
