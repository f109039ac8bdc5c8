package repositories

import (
	"context"

	"github.com/asakaida/gakudan/internal/entities"
)

// PhotoRepository stores the one-per-musician resized photo pair.
type PhotoRepository interface {
	// Upsert inserts or replaces the photo for a musician.
	Upsert(ctx context.Context, photo *entities.MusicianPhoto) error

	// Get returns the photo for a musician, entities.ErrNotFound when absent.
	Get(ctx context.Context, musicianID int64) (*entities.MusicianPhoto, error)

	// Delete removes the photo for a musician. Deleting an absent photo is
	// not an error.
	Delete(ctx context.Context, musicianID int64) error
}

// DocumentRepository stores arbitrary uploaded files attached to musicians.
type DocumentRepository interface {
	// Create inserts a document. Sets ID on success.
	Create(ctx context.Context, doc *entities.MusicianDocument) error

	// GetByID returns a document with content, entities.ErrNotFound when
	// absent.
	GetByID(ctx context.Context, id int64) (*entities.MusicianDocument, error)

	// ListByMusician returns document metadata (no content) for a musician.
	ListByMusician(ctx context.Context, musicianID int64) ([]*entities.MusicianDocument, error)

	// Delete removes a document.
	Delete(ctx context.Context, id int64) error
}
