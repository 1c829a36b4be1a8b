// Package source implements the four facility connectors behind a common
// fetch contract. Connectors return errors to the caller, which logs them
// and treats the contribution as empty — a failing provider never blocks
// the others.
package source

import (
	"context"

	"github.com/homefront-tools/shelter-cli/internal/model"
)

// Source is the common contract every connector implements.
type Source interface {
	// Name returns the connector identifier used in logs.
	Name() string
	// Kind returns the source kind used for dedup priority.
	Kind() model.SourceKind
	// Fetch returns normalized facility records near the coordinate.
	// Implementations drop records with invalid coordinates and must
	// respect per-call timeouts so a dead provider cannot stall a query.
	Fetch(ctx context.Context, lat, lon float64, radiusM int) ([]model.Facility, error)
}

// CandidateResolver supplies locality-name candidates for text-search
// connectors. Satisfied by resolve.Resolver.
type CandidateResolver interface {
	Resolve(ctx context.Context, lat, lon float64) []string
}
