package repositories

import (
	"context"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/pkg/paging"
)

// PerformanceRepository defines the interface for performance data access.
type PerformanceRepository interface {
	// Create inserts a performance record.
	Create(ctx context.Context, performance *entities.Performance) error

	// ListByMusician returns all performances by one musician, ordered by
	// ID, with instrument loaded.
	ListByMusician(ctx context.Context, musicianID int64) ([]*entities.Performance, error)

	// Summaries returns a page of per-musician aggregates ordered by
	// formal name.
	Summaries(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.PerformanceSummary], error)

	// AllSummaries returns every per-musician aggregate ordered by formal
	// name (spreadsheet export).
	AllSummaries(ctx context.Context) ([]*entities.PerformanceSummary, error)
}
