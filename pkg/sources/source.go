// Package sources defines the uniform contract every backing store is wrapped
// behind, plus the normalization helpers that turn backing-schema quirks into
// the canonical model shape.
package sources

import (
	"context"
	"fmt"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// Source is one backing store for model and status data. Implementations own
// their caching policy; callers treat every method as potentially slow.
type Source interface {
	// Name identifies the source in resolution results and logs.
	Name() types.SourceName

	// GetSystemStats returns aggregate counters across all models.
	GetSystemStats(ctx context.Context) (*types.SystemStats, error)

	// GetAllModels returns models normalized to the canonical shape,
	// filtered and paginated.
	GetAllModels(ctx context.Context, filters types.ModelFilters) ([]types.Model, error)

	// GetDetailedStatus returns system stats plus the per-provider
	// breakdown and recent incidents.
	GetDetailedStatus(ctx context.Context) (*types.DetailedStatus, error)
}

// SourceUnavailable reports that one backing store could not be read or
// returned malformed data. The resolution chain catches it and moves on; it
// never surfaces to a caller except as a log line.
type SourceUnavailable struct {
	Source types.SourceName
	Op     string
	Err    error
}

func (e *SourceUnavailable) Error() string {
	return fmt.Sprintf("source %s unavailable during %s: %v", e.Source, e.Op, e.Err)
}

func (e *SourceUnavailable) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a SourceUnavailable for the given source and
// operation.
func Unavailable(source types.SourceName, op string, err error) *SourceUnavailable {
	return &SourceUnavailable{Source: source, Op: op, Err: err}
}
