package repositories

import (
	"context"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/pkg/paging"
)

// Musician sort keys recognized by List. Anything else falls back to
// MusicianSortName.
const (
	MusicianSortName       = "name"
	MusicianSortPhone      = "phone"
	MusicianSortAge        = "age"
	MusicianSortInstrument = "instrument"
)

// MusicianFilter defines filter criteria for querying musicians.
// Predicates are ANDed; zero values are skipped.
type MusicianFilter struct {
	SearchName        string // case-insensitive substring on first or last name
	SearchPhone       string // case-insensitive substring on phone
	InstrumentID      int64  // exact match on primary instrument
	PlaysInstrumentID int64  // musician has a Play link to this instrument
}

// MusicianQuery is a full list request: filters, sort, page.
type MusicianQuery struct {
	Filter         MusicianFilter
	SortField      string
	SortDescending bool
	PageIndex      int // 1-based
	PageSize       int
}

// MusicianRepository defines the interface for musician data access.
type MusicianRepository interface {
	// Create inserts a musician together with its initial play links in one
	// transaction. Sets ID and RowVersion on success.
	Create(ctx context.Context, musician *entities.Musician, playInstrumentIDs []int64) error

	// GetByID loads a musician with its primary instrument and play links.
	// Returns entities.ErrNotFound when absent.
	GetByID(ctx context.Context, id int64) (*entities.Musician, error)

	// List returns a filtered, sorted, stably-paginated page of musicians.
	List(ctx context.Context, query MusicianQuery) (*paging.Page[*entities.Musician], error)

	// ListAll returns all musicians ordered by formal name, for selection
	// list population.
	ListAll(ctx context.Context) ([]*entities.Musician, error)

	// Update applies field updates plus a play-link delta atomically,
	// guarded by a compare-and-swap on the row version token. Returns the
	// fresh token on success, entities.ErrStaleVersion when another writer
	// committed first, and entities.ErrDeletedConcurrently when the row is
	// gone.
	Update(ctx context.Context, musician *entities.Musician, expectedVersion string, addPlays, removePlays []int64) (string, error)

	// Delete removes a musician. Play links cascade.
	Delete(ctx context.Context, id int64) error

	// Exists checks whether a musician with the given ID exists.
	Exists(ctx context.Context, id int64) (bool, error)
}
