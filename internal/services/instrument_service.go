package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/internal/services/authz"
	"github.com/asakaida/gakudan/pkg/cache"
	"github.com/asakaida/gakudan/pkg/paging"
)

// InstrumentServiceInterface defines the interface for instrument operations
type InstrumentServiceInterface interface {
	List(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.Instrument], error)
	Get(ctx context.Context, id int64) (*entities.Instrument, error)
	Create(ctx context.Context, actor authz.Actor, name string, selectedOptions []string) (*entities.Instrument, error)
	Update(ctx context.Context, actor authz.Actor, id int64, name string, expectedVersion string, selectedOptions []string) (*entities.Instrument, error)
	Delete(ctx context.Context, id int64) error
	Options(ctx context.Context, id int64) (*SelectionLists, error)
	Import(ctx context.Context, instruments []*entities.Instrument) (int, error)
}

// InstrumentService coordinates instrument reads and conflict-aware
// writes. It is the other side of the plays relationship: here the
// submitted selection names musicians.
type InstrumentService struct {
	instruments repositories.InstrumentRepository
	musicians   repositories.MusicianRepository
	optionCache cache.Cache
	cacheTTL    time.Duration
}

// NewInstrumentService creates a new InstrumentService. optionCache may be
// nil to disable selection list caching.
func NewInstrumentService(
	instruments repositories.InstrumentRepository,
	musicians repositories.MusicianRepository,
	optionCache cache.Cache,
	cacheTTL time.Duration,
) *InstrumentService {
	return &InstrumentService{
		instruments: instruments,
		musicians:   musicians,
		optionCache: optionCache,
		cacheTTL:    cacheTTL,
	}
}

// List returns a page of instruments ordered by name.
func (s *InstrumentService) List(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.Instrument], error) {
	page, err := s.instruments.List(ctx, pageIndex, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return page, nil
}

// Get loads an instrument with its play links.
func (s *InstrumentService) Get(ctx context.Context, id int64) (*entities.Instrument, error) {
	return s.instruments.GetByID(ctx, id)
}

// Create inserts a new instrument with the submitted musician selection.
func (s *InstrumentService) Create(ctx context.Context, actor authz.Actor, name string, selectedOptions []string) (*entities.Instrument, error) {
	instrument := &entities.Instrument{
		Name:      name,
		CreatedBy: actor.Name,
	}
	if err := instrument.Validate(); err != nil {
		return nil, err
	}

	_, known, err := s.musicianUniverse(ctx)
	if err != nil {
		return nil, err
	}

	delta := ResolveSelection(nil, selectedOptions, known)
	if err := s.instruments.Create(ctx, instrument, delta.ToAdd); err != nil {
		return nil, err
	}
	s.invalidateInstrumentOptions(ctx)

	return s.instruments.GetByID(ctx, instrument.ID)
}

// Update applies the name update and the submitted musician selection
// under the caller's version token. Existence is checked before the staff
// ownership rule. A stale token yields a *entities.VersionConflictError
// with the name diff; a concurrent delete yields ErrDeletedConcurrently.
func (s *InstrumentService) Update(ctx context.Context, actor authz.Actor, id int64, name string, expectedVersion string, selectedOptions []string) (*entities.Instrument, error) {
	existing, err := s.instruments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckOwnership(actor, existing.CreatedBy); err != nil {
		return nil, err
	}

	updated := &entities.Instrument{
		ID:        id,
		Name:      name,
		CreatedBy: existing.CreatedBy,
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	_, known, err := s.musicianUniverse(ctx)
	if err != nil {
		return nil, err
	}

	delta := ResolveSelection(existing.PlayedByMusicianIDs(), selectedOptions, known)

	_, err = s.instruments.Update(ctx, updated, expectedVersion, delta.ToAdd, delta.ToRemove)
	if errors.Is(err, entities.ErrStaleVersion) {
		return nil, s.buildConflict(ctx, updated)
	}
	if err != nil {
		return nil, err
	}
	s.invalidateInstrumentOptions(ctx)

	return s.instruments.GetByID(ctx, id)
}

// Delete removes an instrument. The repository surfaces a
// ReferentialIntegrityError when a musician still plays it.
func (s *InstrumentService) Delete(ctx context.Context, id int64) error {
	exists, err := s.instruments.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check instrument existence: %w", err)
	}
	if !exists {
		return entities.ErrNotFound
	}
	if err := s.instruments.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateInstrumentOptions(ctx)
	return nil
}

// Options returns the selected and available musician lists for the
// relationship editor. id 0 means a new instrument: nothing selected yet.
func (s *InstrumentService) Options(ctx context.Context, id int64) (*SelectionLists, error) {
	selected := map[int64]bool{}
	if id != 0 {
		instrument, err := s.instruments.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, musicianID := range instrument.PlayedByMusicianIDs() {
			selected[musicianID] = true
		}
	}

	universe, _, err := s.musicianUniverse(ctx)
	if err != nil {
		return nil, err
	}

	lists := splitOptions(universe, selected)
	return &lists, nil
}

// Import inserts a batch of instruments from a spreadsheet, skipping
// in-batch duplicates by name. Returns the number inserted.
func (s *InstrumentService) Import(ctx context.Context, instruments []*entities.Instrument) (int, error) {
	seen := map[string]bool{}
	unique := make([]*entities.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		if err := inst.Validate(); err != nil {
			continue
		}
		if seen[inst.Name] {
			continue
		}
		seen[inst.Name] = true
		unique = append(unique, inst)
	}

	if len(unique) == 0 {
		return 0, nil
	}

	if err := s.instruments.BatchCreate(ctx, unique); err != nil {
		return 0, fmt.Errorf("failed to import instruments: %w", err)
	}
	s.invalidateInstrumentOptions(ctx)

	return len(unique), nil
}

// musicianUniverse returns every musician as an option item (formal name
// label) plus the set of valid IDs. Cached briefly, invalidated on
// musician mutations.
func (s *InstrumentService) musicianUniverse(ctx context.Context) ([]OptionItem, map[int64]bool, error) {
	if s.optionCache != nil {
		if cached, ok := s.optionCache.Get(ctx, CacheKeyMusicianOptions); ok {
			if universe, ok := cached.([]OptionItem); ok {
				return universe, optionIDSet(universe), nil
			}
		}
	}

	musicians, err := s.musicians.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load musician options: %w", err)
	}

	universe := make([]OptionItem, 0, len(musicians))
	for _, m := range musicians {
		universe = append(universe, OptionItem{ID: m.ID, Label: m.FormalName()})
	}

	if s.optionCache != nil {
		_ = s.optionCache.Set(ctx, CacheKeyMusicianOptions, universe, s.cacheTTL)
	}

	return universe, optionIDSet(universe), nil
}

// buildConflict loads the latest persisted row and produces the
// VersionConflictError for a failed compare-and-swap.
func (s *InstrumentService) buildConflict(ctx context.Context, attempted *entities.Instrument) error {
	latest, err := s.instruments.GetByID(ctx, attempted.ID)
	if errors.Is(err, entities.ErrNotFound) {
		return entities.ErrDeletedConcurrently
	}
	if err != nil {
		return fmt.Errorf("failed to load latest instrument for conflict diff: %w", err)
	}

	var fields []entities.FieldConflict
	fields = addFieldConflict(fields, "name", attempted.Name, latest.Name)

	return &entities.VersionConflictError{
		Diff: &entities.ConflictDiff{
			Fields:        fields,
			LatestVersion: latest.RowVersion,
		},
	}
}

// invalidateInstrumentOptions drops the instrument option universe cached
// for the musician-side relationship editor and dropdowns.
func (s *InstrumentService) invalidateInstrumentOptions(ctx context.Context) {
	if s.optionCache != nil {
		_ = s.optionCache.Delete(ctx, CacheKeyInstrumentOptions)
	}
}
