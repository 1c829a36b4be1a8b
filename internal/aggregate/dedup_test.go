package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefront-tools/shelter-cli/internal/model"
)

func fac(kind model.SourceKind, rawID string, lat, lon float64) model.Facility {
	return model.Facility{
		ID:         model.RecordID(kind, rawID),
		Lat:        lat,
		Lon:        lon,
		SourceKind: kind,
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	assert.Nil(t, Deduplicate(nil, model.DefaultPriorityOrder, 50))
}

func TestDeduplicateHigherPriorityWins(t *testing.T) {
	// Two records ~10m apart describe the same shelter; the regional record
	// outranks the national-search one regardless of input order.
	regional := fac(model.SourceRegional, "r1", 32.0800, 34.7800)
	national := fac(model.SourceNationalSearch, "n1", 32.08009, 34.7800)

	for _, input := range [][]model.Facility{
		{regional, national},
		{national, regional},
	} {
		out := Deduplicate(input, model.DefaultPriorityOrder, 50)
		require.Len(t, out, 1)
		assert.Equal(t, regional.ID, out[0].ID)
	}
}

func TestDeduplicateBeyondThresholdKeepsBoth(t *testing.T) {
	// ~110m apart: distinct facilities.
	a := fac(model.SourceRegional, "a", 32.0800, 34.7800)
	b := fac(model.SourceNationalSearch, "b", 32.0810, 34.7800)

	out := Deduplicate([]model.Facility{a, b}, model.DefaultPriorityOrder, 50)
	assert.Len(t, out, 2)
}

func TestDeduplicatePermutationInvariance(t *testing.T) {
	records := []model.Facility{
		fac(model.SourceCityAuthoritative, "c1", 32.0800, 34.7800),
		fac(model.SourceRegional, "r1", 32.08005, 34.7800),
		fac(model.SourceNationalSearch, "n1", 32.0900, 34.7800),
		fac(model.SourceOpenData, "o1", 32.09005, 34.7800),
		fac(model.SourceOpenData, "o2", 32.1000, 34.7800),
	}

	want := Deduplicate(records, model.DefaultPriorityOrder, 50)
	require.Len(t, want, 3)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]model.Facility, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, Deduplicate(shuffled, model.DefaultPriorityOrder, 50))
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	records := []model.Facility{
		fac(model.SourceRegional, "r1", 32.0800, 34.7800),
		fac(model.SourceOpenData, "o1", 32.08005, 34.7800),
		fac(model.SourceOpenData, "o2", 32.0900, 34.7800),
	}

	once := Deduplicate(records, model.DefaultPriorityOrder, 50)
	twice := Deduplicate(once, model.DefaultPriorityOrder, 50)
	assert.Equal(t, once, twice)
}

func TestDeduplicateSamePriorityTieBreaksOnID(t *testing.T) {
	a := fac(model.SourceOpenData, "a", 32.0800, 34.7800)
	b := fac(model.SourceOpenData, "b", 32.08005, 34.7800)

	out := Deduplicate([]model.Facility{b, a}, model.DefaultPriorityOrder, 50)
	require.Len(t, out, 1)
	assert.Equal(t, a.ID, out[0].ID)
}

func TestDeduplicateUnknownKindSortsLast(t *testing.T) {
	known := fac(model.SourceOpenData, "k", 32.0800, 34.7800)
	unknown := fac(model.SourceKind("mystery"), "u", 32.08005, 34.7800)

	out := Deduplicate([]model.Facility{unknown, known}, model.DefaultPriorityOrder, 50)
	require.Len(t, out, 1)
	assert.Equal(t, known.ID, out[0].ID)
}
