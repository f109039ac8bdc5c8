package repositories

import (
	"context"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/pkg/paging"
)

// InstrumentRepository defines the interface for instrument data access.
type InstrumentRepository interface {
	// Create inserts an instrument together with its initial play links in
	// one transaction. Sets ID and RowVersion on success.
	Create(ctx context.Context, instrument *entities.Instrument, playMusicianIDs []int64) error

	// GetByID loads an instrument with its play links.
	// Returns entities.ErrNotFound when absent.
	GetByID(ctx context.Context, id int64) (*entities.Instrument, error)

	// List returns a page of instruments ordered by name then ID.
	List(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.Instrument], error)

	// ListAll returns all instruments ordered by name, for selection list
	// and dropdown population.
	ListAll(ctx context.Context) ([]*entities.Instrument, error)

	// Update applies the name update plus a play-link delta atomically,
	// guarded by a compare-and-swap on the row version token. Returns the
	// fresh token on success, entities.ErrStaleVersion when another writer
	// committed first, and entities.ErrDeletedConcurrently when the row is
	// gone.
	Update(ctx context.Context, instrument *entities.Instrument, expectedVersion string, addPlays, removePlays []int64) (string, error)

	// Delete removes an instrument. Fails with a
	// ReferentialIntegrityError when any musician still plays it.
	Delete(ctx context.Context, id int64) error

	// Exists checks whether an instrument with the given ID exists.
	Exists(ctx context.Context, id int64) (bool, error)

	// BatchCreate inserts multiple instruments in a single transaction
	// (spreadsheet import).
	BatchCreate(ctx context.Context, instruments []*entities.Instrument) error
}
