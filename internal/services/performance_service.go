package services

import (
	"context"
	"fmt"
	"time"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/pkg/paging"
)

// PerformanceServiceInterface defines the interface for performance operations
type PerformanceServiceInterface interface {
	Record(ctx context.Context, performance *entities.Performance) error
	ListForMusician(ctx context.Context, musicianID int64) ([]*entities.Performance, error)
	Summary(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.PerformanceSummary], error)
	ExportSummary(ctx context.Context) ([]byte, error)
}

// PerformanceService provides performance history and the per-musician
// summary report.
type PerformanceService struct {
	performances repositories.PerformanceRepository
	musicians    repositories.MusicianRepository
}

// NewPerformanceService creates a new PerformanceService
func NewPerformanceService(performances repositories.PerformanceRepository, musicians repositories.MusicianRepository) *PerformanceService {
	return &PerformanceService{performances: performances, musicians: musicians}
}

// Record stores one performance.
func (s *PerformanceService) Record(ctx context.Context, performance *entities.Performance) error {
	if err := performance.Validate(); err != nil {
		return err
	}

	exists, err := s.musicians.Exists(ctx, performance.MusicianID)
	if err != nil {
		return fmt.Errorf("failed to check musician existence: %w", err)
	}
	if !exists {
		return entities.ErrNotFound
	}

	return s.performances.Create(ctx, performance)
}

// ListForMusician returns a musician's performance history ordered by ID.
func (s *PerformanceService) ListForMusician(ctx context.Context, musicianID int64) ([]*entities.Performance, error) {
	return s.performances.ListByMusician(ctx, musicianID)
}

// Summary returns a page of per-musician aggregates ordered by formal name.
func (s *PerformanceService) Summary(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.PerformanceSummary], error) {
	page, err := s.performances.Summaries(ctx, pageIndex, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load performance summaries: %w", err)
	}
	return page, nil
}

// ExportSummary renders every per-musician aggregate as an .xlsx report.
// Returns entities.ErrNotFound when there is no data to report.
func (s *PerformanceService) ExportSummary(ctx context.Context) ([]byte, error) {
	summaries, err := s.performances.AllSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load performance summaries: %w", err)
	}
	if len(summaries) == 0 {
		return nil, entities.ErrNotFound
	}
	return BuildPerformanceWorkbook(summaries, time.Now())
}
