package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
)

// PostgresPhotoRepository is the PostgreSQL implementation of PhotoRepository.
type PostgresPhotoRepository struct {
	db *sql.DB
}

// NewPostgresPhotoRepository creates a new PostgresPhotoRepository.
func NewPostgresPhotoRepository(db *sql.DB) repositories.PhotoRepository {
	return &PostgresPhotoRepository{db: db}
}

// Upsert inserts or replaces the photo for a musician.
func (r *PostgresPhotoRepository) Upsert(ctx context.Context, photo *entities.MusicianPhoto) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO musician_photos (musician_id, content, thumbnail, mime_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (musician_id) DO UPDATE
		SET content = EXCLUDED.content, thumbnail = EXCLUDED.thumbnail, mime_type = EXCLUDED.mime_type
	`, photo.MusicianID, photo.Content, photo.Thumbnail, photo.MimeType)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Get returns the photo for a musician.
func (r *PostgresPhotoRepository) Get(ctx context.Context, musicianID int64) (*entities.MusicianPhoto, error) {
	photo := &entities.MusicianPhoto{}
	err := r.db.QueryRowContext(ctx, `
		SELECT musician_id, content, thumbnail, mime_type
		FROM musician_photos WHERE musician_id = $1
	`, musicianID).Scan(&photo.MusicianID, &photo.Content, &photo.Thumbnail, &photo.MimeType)
	if err == sql.ErrNoRows {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// Delete removes the photo for a musician. Absence is not an error.
func (r *PostgresPhotoRepository) Delete(ctx context.Context, musicianID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM musician_photos WHERE musician_id = $1`, musicianID); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// PostgresDocumentRepository is the PostgreSQL implementation of DocumentRepository.
type PostgresDocumentRepository struct {
	db *sql.DB
}

// NewPostgresDocumentRepository creates a new PostgresDocumentRepository.
func NewPostgresDocumentRepository(db *sql.DB) repositories.DocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

// Create inserts a document.
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *entities.MusicianDocument) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO musician_documents (musician_id, file_name, mime_type, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, doc.MusicianID, doc.FileName, doc.MimeType, doc.Content).Scan(&doc.ID)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetByID returns a document with content.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id int64) (*entities.MusicianDocument, error) {
	doc := &entities.MusicianDocument{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, musician_id, file_name, mime_type, content
		FROM musician_documents WHERE id = $1
	`, id).Scan(&doc.ID, &doc.MusicianID, &doc.FileName, &doc.MimeType, &doc.Content)
	if err == sql.ErrNoRows {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByMusician returns document metadata without content.
func (r *PostgresDocumentRepository) ListByMusician(ctx context.Context, musicianID int64) ([]*entities.MusicianDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, musician_id, file_name, mime_type
		FROM musician_documents
		WHERE musician_id = $1
		ORDER BY file_name, id
	`, musicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entities.MusicianDocument
	for rows.Next() {
		doc := &entities.MusicianDocument{}
		if err := rows.Scan(&doc.ID, &doc.MusicianID, &doc.FileName, &doc.MimeType); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM musician_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return entities.ErrNotFound
	}
	return nil
}
