package aggregate

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/homefront-tools/shelter-cli/internal/config"
	"github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/model"
	"github.com/homefront-tools/shelter-cli/internal/source"
)

// Pipeline aggregates facility records across providers: concurrent
// fetches, priority dedup, and a radius ladder that widens the search until
// enough results are found.
//
// Providers split into two fetch strategies. Per-radius providers support a
// cheap spatial filter and are re-queried at every ladder step. Wide
// providers are expensive or unfilterable upstream (text search, scattered
// municipal endpoints); they are fetched once at the widest radius and
// re-filtered client-side per step.
type Pipeline struct {
	wide      []source.Source
	perRadius []source.Source
	cfg       config.PipelineConfig
	order     []model.SourceKind
}

// New creates a Pipeline. A nil or unknown priority order in the config
// falls back to the built-in default.
func New(cfg config.PipelineConfig, wide, perRadius []source.Source) *Pipeline {
	order := make([]model.SourceKind, 0, len(cfg.PriorityOrder))
	for _, s := range cfg.PriorityOrder {
		order = append(order, model.SourceKind(s))
	}
	if len(order) == 0 {
		order = model.DefaultPriorityOrder
	}
	return &Pipeline{
		wide:      wide,
		perRadius: perRadius,
		cfg:       cfg,
		order:     order,
	}
}

// fetchResult is one provider's contribution to a query.
type fetchResult struct {
	records []model.Facility
	failed  bool
}

// fetchAll queries the given providers concurrently. A provider error is
// logged and recorded, never propagated — one dead provider must not sink
// the query.
func fetchAll(ctx context.Context, sources []source.Source, lat, lon float64, radiusM int, queryID string) []fetchResult {
	results := make([]fetchResult, len(sources))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			recs, err := src.Fetch(gCtx, lat, lon, radiusM)
			if err != nil {
				zap.L().Warn("aggregate: provider fetch failed",
					zap.String("query_id", queryID),
					zap.String("provider", src.Name()),
					zap.Int("radius_m", radiusM),
					zap.Error(err),
				)
				mu.Lock()
				results[i] = fetchResult{failed: true}
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results[i] = fetchResult{records: recs}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FindNearest returns up to MaxResults deduplicated facilities around the
// given point, nearest first, with per-query distances filled in. The
// search starts at the base radius and widens through the expansion ladder
// until at least MinResults distinct facilities are found or the ladder is
// exhausted. An error is returned only when every provider attempt failed;
// zero results from healthy providers is a valid empty answer.
func (p *Pipeline) FindNearest(ctx context.Context, lat, lon float64) ([]model.Facility, error) {
	if err := geo.ValidateCoords(lat, lon); err != nil {
		return nil, eris.Wrap(err, "aggregate: invalid query point")
	}
	queryID := uuid.NewString()

	wideResults := fetchAll(ctx, p.wide, lat, lon, p.cfg.WideRadiusM, queryID)
	var wideAttempted, wideFailed int
	var wideRecords []model.Facility
	for _, r := range wideResults {
		wideAttempted++
		if r.failed {
			wideFailed++
			continue
		}
		wideRecords = append(wideRecords, r.records...)
	}

	radii := append([]int{p.cfg.BaseRadiusM}, p.cfg.ExpansionRadiiM...)

	var deduped []model.Facility
	var radiusUsed, stepAttempted, stepFailed int
	for _, radiusM := range radii {
		radiusUsed = radiusM
		stepAttempted, stepFailed = 0, 0

		var combined []model.Facility
		for _, r := range fetchAll(ctx, p.perRadius, lat, lon, radiusM, queryID) {
			stepAttempted++
			if r.failed {
				stepFailed++
				continue
			}
			combined = append(combined, r.records...)
		}
		for _, rec := range wideRecords {
			if geo.Distance(lat, lon, rec.Lat, rec.Lon) <= float64(radiusM) {
				combined = append(combined, rec)
			}
		}

		deduped = Deduplicate(combined, p.order, p.cfg.DedupThresholdM)
		if len(deduped) >= p.cfg.MinResults {
			break
		}
		zap.L().Debug("aggregate: expanding search radius",
			zap.String("query_id", queryID),
			zap.Int("radius_m", radiusM),
			zap.Int("found", len(deduped)),
			zap.Int("min_results", p.cfg.MinResults),
		)
	}

	attempted := wideAttempted + stepAttempted
	failed := wideFailed + stepFailed
	if attempted > 0 && failed == attempted && len(deduped) == 0 {
		return nil, eris.Errorf("aggregate: all %d providers failed", attempted)
	}

	for i := range deduped {
		deduped[i].DistanceMeters = int(math.Round(geo.Distance(lat, lon, deduped[i].Lat, deduped[i].Lon)))
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].DistanceMeters != deduped[j].DistanceMeters {
			return deduped[i].DistanceMeters < deduped[j].DistanceMeters
		}
		return deduped[i].ID < deduped[j].ID
	})
	if len(deduped) > p.cfg.MaxResults {
		deduped = deduped[:p.cfg.MaxResults]
	}

	zap.L().Info("aggregate: query complete",
		zap.String("query_id", queryID),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Int("radius_m", radiusUsed),
		zap.Int("results", len(deduped)),
		zap.Int("providers_failed", failed),
	)
	return deduped, nil
}
