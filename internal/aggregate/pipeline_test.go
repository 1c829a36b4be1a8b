package aggregate

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefront-tools/shelter-cli/internal/config"
	"github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/model"
	"github.com/homefront-tools/shelter-cli/internal/source"
)

// stubSource serves a fixed record set filtered by the requested radius,
// recording the radii it was queried at.
type stubSource struct {
	mu    sync.Mutex
	name  string
	kind  model.SourceKind
	recs  []model.Facility
	err   error
	radii []int
}

func (s *stubSource) Name() string           { return s.name }
func (s *stubSource) Kind() model.SourceKind { return s.kind }

func (s *stubSource) Fetch(_ context.Context, lat, lon float64, radiusM int) ([]model.Facility, error) {
	s.mu.Lock()
	s.radii = append(s.radii, radiusM)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Facility
	for _, rec := range s.recs {
		if geo.Distance(lat, lon, rec.Lat, rec.Lon) <= float64(radiusM) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubSource) calledRadii() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.radii...)
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		BaseRadiusM:     2000,
		ExpansionRadiiM: []int{3000, 5000},
		WideRadiusM:     5000,
		MinResults:      3,
		MaxResults:      5,
		DedupThresholdM: 50,
	}
}

const (
	qLat = 32.0800
	qLon = 34.7800
)

// at returns a point offset north of the query point by roughly the given
// number of meters.
func at(meters float64) (float64, float64) {
	return qLat + meters/111320.0, qLon
}

func facAt(kind model.SourceKind, rawID string, meters float64) model.Facility {
	lat, lon := at(meters)
	return fac(kind, rawID, lat, lon)
}

func TestFindNearestSortsAndTruncates(t *testing.T) {
	src := &stubSource{name: "stub", kind: model.SourceOpenData, recs: []model.Facility{
		facAt(model.SourceOpenData, "d", 800),
		facAt(model.SourceOpenData, "a", 100),
		facAt(model.SourceOpenData, "f", 1500),
		facAt(model.SourceOpenData, "b", 300),
		facAt(model.SourceOpenData, "g", 1800),
		facAt(model.SourceOpenData, "c", 500),
		facAt(model.SourceOpenData, "e", 1200),
	}}

	p := New(testPipelineConfig(), nil, []source.Source{src})
	out, err := p.FindNearest(context.Background(), qLat, qLon)
	require.NoError(t, err)
	require.Len(t, out, 5)

	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].DistanceMeters, out[i].DistanceMeters)
	}
	assert.Equal(t, "open-data:a", out[0].ID)
	assert.InDelta(t, 100, out[0].DistanceMeters, 2)
}

func TestFindNearestExpandsRadiusUntilEnough(t *testing.T) {
	// Two facilities inside the base radius, the third at ~2500m: the
	// ladder must widen once and stop.
	src := &stubSource{name: "stub", kind: model.SourceOpenData, recs: []model.Facility{
		facAt(model.SourceOpenData, "a", 500),
		facAt(model.SourceOpenData, "b", 1500),
		facAt(model.SourceOpenData, "c", 2500),
	}}

	p := New(testPipelineConfig(), nil, []source.Source{src})
	out, err := p.FindNearest(context.Background(), qLat, qLon)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, []int{2000, 3000}, src.calledRadii())
}

func TestFindNearestStopsAtBaseWhenEnough(t *testing.T) {
	src := &stubSource{name: "stub", kind: model.SourceOpenData, recs: []model.Facility{
		facAt(model.SourceOpenData, "a", 200),
		facAt(model.SourceOpenData, "b", 400),
		facAt(model.SourceOpenData, "c", 600),
	}}

	p := New(testPipelineConfig(), nil, []source.Source{src})
	out, err := p.FindNearest(context.Background(), qLat, qLon)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, []int{2000}, src.calledRadii())
}

func TestFindNearestWideFetchedOnceAndRefiltered(t *testing.T) {
	// The wide provider is queried once at the widest radius; its distant
	// record only enters the result once the ladder reaches it.
	wide := &stubSource{name: "wide", kind: model.SourceNationalSearch, recs: []model.Facility{
		facAt(model.SourceNationalSearch, "near", 500),
		facAt(model.SourceNationalSearch, "far", 4000),
	}}

	p := New(testPipelineConfig(), []source.Source{wide}, nil)
	out, err := p.FindNearest(context.Background(), qLat, qLon)
	require.NoError(t, err)

	assert.Equal(t, []int{5000}, wide.calledRadii(), "wide provider must be fetched exactly once")
	require.Len(t, out, 2)
	assert.Equal(t, "national-search:near", out[0].ID)
	assert.Equal(t, "national-search:far", out[1].ID)
}

func TestFindNearestCrossProviderDedup(t *testing.T) {
	regional := &stubSource{name: "regional", kind: model.SourceRegional, recs: []model.Facility{
		facAt(model.SourceRegional, "r1", 500),
	}}
	open := &stubSource{name: "open", kind: model.SourceOpenData, recs: []model.Facility{
		facAt(model.SourceOpenData, "o1", 510), // same shelter, 10m off
		facAt(model.SourceOpenData, "o2", 1200),
		facAt(model.SourceOpenData, "o3", 1400),
	}}

	p := New(testPipelineConfig(), nil, []source.Source{regional, open})
	out, err := p.FindNearest(context.Background(), qLat, qLon)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "regional:r1", out[0].ID, "higher-priority record survives the merge")
}

func TestFindNearestPartialFailure(t *testing.T) {
	dead := &stubSource{name: "dead", kind: model.SourceRegional, err: eris.New("connection refused")}
	alive := &stubSource{name: "alive", kind: model.SourceOpenData, recs: []model.Facility{
		facAt(model.SourceOpenData, "a", 300),
		facAt(model.SourceOpenData, "b", 600),
		facAt(model.SourceOpenData, "c", 900),
	}}

	p := New(testPipelineConfig(), nil, []source.Source{dead, alive})
	out, err := p.FindNearest(context.Background(), qLat, qLon)
	require.NoError(t, err, "one healthy provider is enough")
	assert.Len(t, out, 3)
}

func TestFindNearestAllProvidersFailed(t *testing.T) {
	deadWide := &stubSource{name: "dead-wide", kind: model.SourceNationalSearch, err: eris.New("timeout")}
	deadStep := &stubSource{name: "dead-step", kind: model.SourceOpenData, err: eris.New("timeout")}

	p := New(testPipelineConfig(), []source.Source{deadWide}, []source.Source{deadStep})
	_, err := p.FindNearest(context.Background(), qLat, qLon)
	assert.Error(t, err)
}

func TestFindNearestEmptyIsNotAnError(t *testing.T) {
	empty := &stubSource{name: "empty", kind: model.SourceOpenData}

	p := New(testPipelineConfig(), nil, []source.Source{empty})
	out, err := p.FindNearest(context.Background(), qLat, qLon)
	require.NoError(t, err, "zero results from healthy providers is a valid answer")
	assert.Empty(t, out)
	// The ladder still runs to the end looking for results.
	assert.Equal(t, []int{2000, 3000, 5000}, empty.calledRadii())
}

func TestFindNearestInvalidPoint(t *testing.T) {
	p := New(testPipelineConfig(), nil, nil)
	_, err := p.FindNearest(context.Background(), 123.0, 34.78)
	assert.Error(t, err)
}
