package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/model"
	"github.com/homefront-tools/shelter-cli/internal/resilience"
)

// arcgisFeature is one feature from an ArcGIS-style query response. The
// attribute mapping is free-form because every operator uses its own schema.
type arcgisFeature struct {
	Geometry *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"geometry"`
	Attributes map[string]any `json:"attributes"`
}

// arcgisResponse is the envelope of an ArcGIS query response. The service
// reports failures inside a 200 body, so Error must be checked explicitly.
type arcgisResponse struct {
	Features []arcgisFeature `json:"features"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// spatialQueryParams builds a point+radius intersect filter in WGS84.
func spatialQueryParams(lat, lon float64, radiusM, maxRecords int) url.Values {
	return url.Values{
		"where":             {"1=1"},
		"geometry":          {fmt.Sprintf("%f,%f", lon, lat)},
		"geometryType":      {"esriGeometryPoint"},
		"inSR":              {"4326"},
		"spatialRel":        {"esriSpatialRelIntersects"},
		"distance":          {strconv.Itoa(radiusM)},
		"units":             {"esriSRUnit_Meter"},
		"outFields":         {"*"},
		"outSR":             {"4326"},
		"returnGeometry":    {"true"},
		"f":                 {"json"},
		"resultRecordCount": {strconv.Itoa(maxRecords)},
	}
}

// fullScanParams builds an unfiltered bounded fetch, used as a degradation
// fallback when a spatial query returns zero features.
func fullScanParams(maxRecords int) url.Values {
	return url.Values{
		"where":             {"1=1"},
		"outFields":         {"*"},
		"outSR":             {"4326"},
		"returnGeometry":    {"true"},
		"f":                 {"json"},
		"resultRecordCount": {strconv.Itoa(maxRecords)},
	}
}

// queryArcGIS performs a GET against an ArcGIS query endpoint and decodes
// the feature envelope. Rate limits and 5xx answers are retried with
// backoff; in-body service errors are not.
func queryArcGIS(ctx context.Context, hc *http.Client, endpoint string, params url.Values) (*arcgisResponse, error) {
	return resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) (*arcgisResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, eris.Wrap(err, "arcgis: build request")
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := hc.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "arcgis: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("arcgis: status %d from %s", resp.StatusCode, endpoint)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "arcgis: read body")
		}

		var ar arcgisResponse
		if err := json.Unmarshal(body, &ar); err != nil {
			return nil, eris.Wrap(err, "arcgis: parse response")
		}
		if ar.Error != nil {
			return nil, eris.Errorf("arcgis: service error %d: %s", ar.Error.Code, ar.Error.Message)
		}
		return &ar, nil
	})
}

// fieldSynonyms maps each logical attribute to the ordered list of field
// names operators are known to use for it. A data table rather than
// conditionals so new operator schemas only grow the table.
var fieldSynonyms = []struct {
	attr string
	keys []string
}{
	{"id", []string{"UniqueId", "OBJECTID", "oid_mitkan", "FID", "id"}},
	{"address", []string{"Full_Address", "address", "ADDRESS", "addr", "ktovet"}},
	{"name", []string{"shem", "name", "Name", "shem_mitkan"}},
	{"category", []string{"t_sug", "sug", "type", "Type"}},
	{"hours", []string{"opening_times", "hours", "shaot_pticha"}},
	{"phone", []string{"telephone_henion", "celolar", "phone", "telephone"}},
	{"notes", []string{"hearot", "notes", "remarks"}},
}

// probeAttr returns the first non-empty value among the attribute's synonym
// keys, rendered as a trimmed string.
func probeAttr(attrs map[string]any, attr string) string {
	for _, fs := range fieldSynonyms {
		if fs.attr != attr {
			continue
		}
		for _, key := range fs.keys {
			if s := attrString(attrs[key]); s != "" {
				return s
			}
		}
		return ""
	}
	return ""
}

// attrString renders a free-form attribute value as a trimmed string.
// ArcGIS JSON numbers arrive as float64; integral values drop the fraction.
func attrString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// parseArcGISFeature normalizes one feature into a Facility. Returns false
// when the feature has no valid coordinates; such records are dropped, never
// propagated.
func parseArcGISFeature(kind model.SourceKind, f arcgisFeature) (model.Facility, bool) {
	var lat, lon float64
	switch {
	case f.Geometry != nil:
		lat, lon = f.Geometry.Y, f.Geometry.X
	default:
		var err1, err2 error
		lat, err1 = attrFloat(f.Attributes["lat"])
		lon, err2 = attrFloat(f.Attributes["lon"])
		if err1 != nil || err2 != nil {
			return model.Facility{}, false
		}
	}
	if lat == 0 && lon == 0 {
		return model.Facility{}, false
	}
	if err := geo.ValidateCoords(lat, lon); err != nil {
		return model.Facility{}, false
	}

	rawID := probeAttr(f.Attributes, "id")
	if rawID == "" {
		return model.Facility{}, false
	}

	address := probeAttr(f.Attributes, "address")
	if address == "" {
		// Synthesize from street name + house number fields when the
		// full-address attribute is empty.
		street := attrString(f.Attributes["shem_recho"])
		house := attrString(f.Attributes["ms_bait"])
		address = strings.TrimSpace(street + " " + house)
	}

	return model.Facility{
		ID:         model.RecordID(kind, rawID),
		Lat:        lat,
		Lon:        lon,
		Address:    address,
		Name:       probeAttr(f.Attributes, "name"),
		Category:   probeAttr(f.Attributes, "category"),
		Hours:      probeAttr(f.Attributes, "hours"),
		Phone:      probeAttr(f.Attributes, "phone"),
		Notes:      probeAttr(f.Attributes, "notes"),
		SourceKind: kind,
	}, true
}

// attrFloat parses an attribute value as a float64.
func attrFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, eris.New("arcgis: not a number")
	}
}

const userAgent = "shelter-cli/1.0"
