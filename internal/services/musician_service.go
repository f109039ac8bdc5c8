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

// MusicianFields is the partial set of field values an edit submission
// assigns to a musician.
type MusicianFields struct {
	FirstName    string
	MiddleName   string
	LastName     string
	Phone        string
	DOB          time.Time
	SIN          string
	InstrumentID int64
}

// MusicianServiceInterface defines the interface for musician operations
type MusicianServiceInterface interface {
	List(ctx context.Context, query repositories.MusicianQuery) (*paging.Page[*entities.Musician], error)
	Get(ctx context.Context, id int64) (*entities.Musician, error)
	Create(ctx context.Context, actor authz.Actor, fields MusicianFields, selectedOptions []string) (*entities.Musician, error)
	Update(ctx context.Context, actor authz.Actor, id int64, fields MusicianFields, expectedVersion string, selectedOptions []string) (*entities.Musician, error)
	Delete(ctx context.Context, id int64) error
	Options(ctx context.Context, id int64) (*SelectionLists, error)
	InstrumentChoices(ctx context.Context) ([]OptionItem, error)
}

// MusicianService coordinates musician reads and conflict-aware writes.
// Play-link deltas are resolved here and applied by the repository in the
// same transaction as the field update.
type MusicianService struct {
	musicians   repositories.MusicianRepository
	instruments repositories.InstrumentRepository
	optionCache cache.Cache
	cacheTTL    time.Duration
}

// NewMusicianService creates a new MusicianService. optionCache may be nil
// to disable selection list caching.
func NewMusicianService(
	musicians repositories.MusicianRepository,
	instruments repositories.InstrumentRepository,
	optionCache cache.Cache,
	cacheTTL time.Duration,
) *MusicianService {
	return &MusicianService{
		musicians:   musicians,
		instruments: instruments,
		optionCache: optionCache,
		cacheTTL:    cacheTTL,
	}
}

// List returns a filtered, sorted, paged view of musicians.
func (s *MusicianService) List(ctx context.Context, query repositories.MusicianQuery) (*paging.Page[*entities.Musician], error) {
	page, err := s.musicians.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list musicians: %w", err)
	}
	return page, nil
}

// Get loads a musician with instrument and play links.
func (s *MusicianService) Get(ctx context.Context, id int64) (*entities.Musician, error) {
	return s.musicians.GetByID(ctx, id)
}

// Create inserts a new musician with the submitted play selection.
func (s *MusicianService) Create(ctx context.Context, actor authz.Actor, fields MusicianFields, selectedOptions []string) (*entities.Musician, error) {
	musician := &entities.Musician{
		FirstName:    fields.FirstName,
		MiddleName:   fields.MiddleName,
		LastName:     fields.LastName,
		Phone:        fields.Phone,
		DOB:          fields.DOB,
		SIN:          fields.SIN,
		InstrumentID: fields.InstrumentID,
		CreatedBy:    actor.Name,
	}
	if err := musician.Validate(); err != nil {
		return nil, err
	}

	_, known, err := s.instrumentUniverse(ctx)
	if err != nil {
		return nil, err
	}

	delta := ResolveSelection(nil, selectedOptions, known)
	if err := s.musicians.Create(ctx, musician, delta.ToAdd); err != nil {
		return nil, err
	}
	s.invalidateMusicianOptions(ctx)

	return s.musicians.GetByID(ctx, musician.ID)
}

// Update applies field updates and the submitted play selection under the
// caller's version token. On a stale token it returns a
// *entities.VersionConflictError carrying the field-by-field diff and the
// latest token; on a concurrent delete it returns ErrDeletedConcurrently.
// The existence check always precedes the ownership check.
func (s *MusicianService) Update(ctx context.Context, actor authz.Actor, id int64, fields MusicianFields, expectedVersion string, selectedOptions []string) (*entities.Musician, error) {
	existing, err := s.musicians.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckOwnership(actor, existing.CreatedBy); err != nil {
		return nil, err
	}

	updated := &entities.Musician{
		ID:           id,
		FirstName:    fields.FirstName,
		MiddleName:   fields.MiddleName,
		LastName:     fields.LastName,
		Phone:        fields.Phone,
		DOB:          fields.DOB,
		SIN:          fields.SIN,
		InstrumentID: fields.InstrumentID,
		CreatedBy:    existing.CreatedBy,
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	universe, known, err := s.instrumentUniverse(ctx)
	if err != nil {
		return nil, err
	}

	delta := ResolveSelection(existing.PlayedInstrumentIDs(), selectedOptions, known)

	_, err = s.musicians.Update(ctx, updated, expectedVersion, delta.ToAdd, delta.ToRemove)
	if errors.Is(err, entities.ErrStaleVersion) {
		return nil, s.buildConflict(ctx, updated, universe)
	}
	if err != nil {
		return nil, err
	}
	s.invalidateMusicianOptions(ctx)

	return s.musicians.GetByID(ctx, id)
}

// Delete removes a musician and, by cascade, its play links.
func (s *MusicianService) Delete(ctx context.Context, id int64) error {
	exists, err := s.musicians.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check musician existence: %w", err)
	}
	if !exists {
		return entities.ErrNotFound
	}
	if err := s.musicians.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateMusicianOptions(ctx)
	return nil
}

// invalidateMusicianOptions drops the musician option universe cached for
// the instrument-side relationship editor.
func (s *MusicianService) invalidateMusicianOptions(ctx context.Context) {
	if s.optionCache != nil {
		_ = s.optionCache.Delete(ctx, CacheKeyMusicianOptions)
	}
}

// Options returns the selected and available instrument lists for the
// relationship editor. id 0 means a new musician: nothing selected yet.
func (s *MusicianService) Options(ctx context.Context, id int64) (*SelectionLists, error) {
	selected := map[int64]bool{}
	if id != 0 {
		musician, err := s.musicians.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, instrumentID := range musician.PlayedInstrumentIDs() {
			selected[instrumentID] = true
		}
	}

	universe, _, err := s.instrumentUniverse(ctx)
	if err != nil {
		return nil, err
	}

	lists := splitOptions(universe, selected)
	return &lists, nil
}

// InstrumentChoices returns the instrument dropdown (primary instrument
// selector), ordered by name.
func (s *MusicianService) InstrumentChoices(ctx context.Context) ([]OptionItem, error) {
	universe, _, err := s.instrumentUniverse(ctx)
	if err != nil {
		return nil, err
	}
	return universe, nil
}

// instrumentUniverse returns every instrument as an option item plus the
// set of valid IDs, serving both selection resolution and list population.
// Cached briefly: the instrument table is small and read on every form.
func (s *MusicianService) instrumentUniverse(ctx context.Context) ([]OptionItem, map[int64]bool, error) {
	if s.optionCache != nil {
		if cached, ok := s.optionCache.Get(ctx, CacheKeyInstrumentOptions); ok {
			if universe, ok := cached.([]OptionItem); ok {
				return universe, optionIDSet(universe), nil
			}
		}
	}

	instruments, err := s.instruments.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load instrument options: %w", err)
	}

	universe := make([]OptionItem, 0, len(instruments))
	for _, inst := range instruments {
		universe = append(universe, OptionItem{ID: inst.ID, Label: inst.Name})
	}

	if s.optionCache != nil {
		_ = s.optionCache.Set(ctx, CacheKeyInstrumentOptions, universe, s.cacheTTL)
	}

	return universe, optionIDSet(universe), nil
}

// buildConflict loads the latest persisted row and produces the
// VersionConflictError for a failed compare-and-swap. A missing row means
// the musician was deleted after the caller loaded it.
func (s *MusicianService) buildConflict(ctx context.Context, attempted *entities.Musician, universe []OptionItem) error {
	latest, err := s.musicians.GetByID(ctx, attempted.ID)
	if errors.Is(err, entities.ErrNotFound) {
		return entities.ErrDeletedConcurrently
	}
	if err != nil {
		return fmt.Errorf("failed to load latest musician for conflict diff: %w", err)
	}

	labels := map[int64]string{}
	for _, opt := range universe {
		labels[opt.ID] = opt.Label
	}

	var fields []entities.FieldConflict
	fields = addFieldConflict(fields, "first_name", attempted.FirstName, latest.FirstName)
	fields = addFieldConflict(fields, "middle_name", attempted.MiddleName, latest.MiddleName)
	fields = addFieldConflict(fields, "last_name", attempted.LastName, latest.LastName)
	fields = addFieldConflict(fields, "sin", attempted.SIN, latest.SIN)
	fields = addFieldConflict(fields, "phone", attempted.Phone, latest.Phone)
	fields = addFieldConflict(fields, "dob", attempted.DOB.Format(dateLayout), latest.DOB.Format(dateLayout))
	// The foreign key conflicts are reported by display name, not raw ID.
	fields = addFieldConflict(fields, "instrument", labels[attempted.InstrumentID], labels[latest.InstrumentID])

	return &entities.VersionConflictError{
		Diff: &entities.ConflictDiff{
			Fields:        fields,
			LatestVersion: latest.RowVersion,
		},
	}
}

func optionIDSet(opts []OptionItem) map[int64]bool {
	ids := make(map[int64]bool, len(opts))
	for _, opt := range opts {
		ids[opt.ID] = true
	}
	return ids
}
