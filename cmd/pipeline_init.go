package main

import (
	"github.com/homefront-tools/shelter-cli/internal/aggregate"
	"github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/resolve"
	"github.com/homefront-tools/shelter-cli/internal/source"
)

// pipelineEnv holds the initialized connectors and the aggregation pipeline
// shared by the nearest/serve/ping commands.
type pipelineEnv struct {
	Pipeline *aggregate.Pipeline
	Sources  []source.Source
}

// initPipeline validates the config for the given run mode and wires the
// resolver, the four provider connectors and the pipeline.
//
// The regional and govmap connectors are expensive per query (scattered
// endpoints, text search), so they go on the wide-prefetch side; the
// city layer and the open dataset support cheap spatial filters and are
// re-queried at each radius step.
func initPipeline(mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	resolver := resolve.New(cfg.Resolver, cfg.Overpass)
	cache := source.NewPlaceCache()

	telaviv := source.NewTelAviv(cfg.TelAviv)
	regional := source.NewRegional(cfg.Regional, source.DefaultRegionalEndpoints())
	govmap := source.NewGovmap(cfg.Govmap, resolver, cache, geo.ITMToWGS84)
	overpass := source.NewOverpass(cfg.Overpass)

	p := aggregate.New(cfg.Pipeline,
		[]source.Source{regional, govmap},
		[]source.Source{telaviv, overpass},
	)

	return &pipelineEnv{
		Pipeline: p,
		Sources:  []source.Source{telaviv, regional, govmap, overpass},
	}, nil
}
