package source

import (
	"context"
	_ "embed"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/homefront-tools/shelter-cli/internal/config"
	"github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/model"
)

// RegionalEndpoint is one independently-hosted municipal GIS endpoint with
// its approximate coverage box.
type RegionalEndpoint struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	BBox struct {
		MinLat float64 `yaml:"min_lat"`
		MinLon float64 `yaml:"min_lon"`
		MaxLat float64 `yaml:"max_lat"`
		MaxLon float64 `yaml:"max_lon"`
	} `yaml:"bbox"`
}

// Box returns the coverage box as a geo type.
func (e RegionalEndpoint) Box() geo.BoundingBox {
	return geo.BoundingBox{
		MinLat: e.BBox.MinLat,
		MinLon: e.BBox.MinLon,
		MaxLat: e.BBox.MaxLat,
		MaxLon: e.BBox.MaxLon,
	}
}

//go:embed endpoints.yaml
var embeddedEndpoints []byte

// DefaultRegionalEndpoints returns the built-in municipal endpoint
// registry. Coverage boxes are approximate; queries are gated on them
// expanded by the configured margin.
func DefaultRegionalEndpoints() []RegionalEndpoint {
	endpoints, err := ParseEndpoints(embeddedEndpoints)
	if err != nil {
		// The embedded registry is validated by tests; a parse failure
		// here is a build defect.
		panic(err)
	}
	return endpoints
}

// ParseEndpoints decodes a YAML endpoint registry.
func ParseEndpoints(data []byte) ([]RegionalEndpoint, error) {
	var endpoints []RegionalEndpoint
	if err := yaml.Unmarshal(data, &endpoints); err != nil {
		return nil, eris.Wrap(err, "regional: parse endpoint registry")
	}
	for _, ep := range endpoints {
		if ep.Name == "" || ep.URL == "" {
			return nil, eris.Errorf("regional: endpoint missing name or url")
		}
	}
	return endpoints, nil
}

// RegionalSource queries municipal GIS endpoints whose coverage box contains
// the query point. Per-endpoint queries run concurrently; a slow or dead
// endpoint cannot block the others past its own timeout.
type RegionalSource struct {
	httpClient *http.Client
	endpoints  []RegionalEndpoint
	bboxMargin float64
	maxRecords int
}

// NewRegional creates a RegionalSource over the given endpoint registry.
func NewRegional(cfg config.RegionalConfig, endpoints []RegionalEndpoint) *RegionalSource {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	margin := cfg.BBoxMargin
	if margin == 0 {
		margin = 0.05
	}
	return &RegionalSource{
		httpClient: &http.Client{Timeout: timeout},
		endpoints:  endpoints,
		bboxMargin: margin,
		maxRecords: 100,
	}
}

// Name implements Source.
func (s *RegionalSource) Name() string { return "regional" }

// Kind implements Source.
func (s *RegionalSource) Kind() model.SourceKind { return model.SourceRegional }

// Fetch implements Source. Endpoints whose expanded box excludes the point
// are skipped without a network call. Individual endpoint failures are
// logged and dropped; an error is returned only when every queried endpoint
// failed.
func (s *RegionalSource) Fetch(ctx context.Context, lat, lon float64, radiusM int) ([]model.Facility, error) {
	var mu sync.Mutex
	var records []model.Facility
	var attempted, failed int

	g, gCtx := errgroup.WithContext(ctx)
	for _, ep := range s.endpoints {
		if !ep.Box().Expand(s.bboxMargin).Contains(lat, lon) {
			zap.L().Debug("regional: endpoint outside coverage, skipping",
				zap.String("endpoint", ep.Name),
			)
			continue
		}
		attempted++

		ep := ep
		g.Go(func() error {
			ar, err := queryArcGIS(gCtx, s.httpClient, ep.URL, spatialQueryParams(lat, lon, radiusM, s.maxRecords))
			if err != nil {
				zap.L().Warn("regional: endpoint query failed",
					zap.String("endpoint", ep.Name),
					zap.Error(err),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil // other endpoints keep running
			}

			var parsed []model.Facility
			for _, f := range ar.Features {
				if rec, ok := parseArcGISFeature(model.SourceRegional, f); ok {
					parsed = append(parsed, rec)
				}
			}

			mu.Lock()
			records = append(records, parsed...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if attempted > 0 && failed == attempted {
		return nil, eris.Errorf("regional: all %d endpoints failed", attempted)
	}
	return records, nil
}
