package aggregate

import (
	"sort"

	"github.com/homefront-tools/shelter-cli/internal/geo"
	"github.com/homefront-tools/shelter-cli/internal/model"
)

// priorityRank maps each source kind to its position in the configured
// order. Unknown kinds sort last.
func priorityRank(order []model.SourceKind) map[model.SourceKind]int {
	ranks := make(map[model.SourceKind]int, len(order))
	for i, kind := range order {
		ranks[kind] = i
	}
	return ranks
}

// Deduplicate collapses records that describe the same physical facility:
// two records within thresholdM meters of each other are duplicates, and
// the one from the higher-priority source survives. The result is
// independent of input order — records are ranked by source priority (ties
// broken by ID) before the scan, so any permutation of the input produces
// the same output.
func Deduplicate(records []model.Facility, order []model.SourceKind, thresholdM float64) []model.Facility {
	if len(records) == 0 {
		return nil
	}

	ranks := priorityRank(order)
	rank := func(f model.Facility) int {
		if r, ok := ranks[f.SourceKind]; ok {
			return r
		}
		return len(order)
	}

	sorted := make([]model.Facility, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := rank(sorted[i]), rank(sorted[j])
		if ri != rj {
			return ri < rj
		}
		return sorted[i].ID < sorted[j].ID
	})

	var kept []model.Facility
	for _, rec := range sorted {
		duplicate := false
		for _, k := range kept {
			if geo.Distance(rec.Lat, rec.Lon, k.Lat, k.Lon) <= thresholdM {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, rec)
		}
	}
	return kept
}
