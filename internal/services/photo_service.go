package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
)

// Stored photo bounds: a display copy and a small thumbnail, both JPEG.
const (
	photoMaxWidth  = 500
	photoMaxHeight = 600
	thumbMaxWidth  = 75
	thumbMaxHeight = 90

	photoMimeType = "image/jpeg"
)

// ErrNotAnImage is returned when a photo upload is not a decodable image.
var ErrNotAnImage = errors.New("uploaded file is not an image")

// PhotoServiceInterface defines the interface for photo operations
type PhotoServiceInterface interface {
	Upload(ctx context.Context, musicianID int64, content []byte, mimeType string) error
	Get(ctx context.Context, musicianID int64, thumb bool) ([]byte, string, error)
	Remove(ctx context.Context, musicianID int64) error
}

// DocumentServiceInterface defines the interface for document operations
type DocumentServiceInterface interface {
	Attach(ctx context.Context, musicianID int64, fileName, mimeType string, content []byte) error
	Download(ctx context.Context, id int64) (*entities.MusicianDocument, error)
	ListForMusician(ctx context.Context, musicianID int64) ([]*entities.MusicianDocument, error)
}

// PhotoService resizes and stores musician photos.
type PhotoService struct {
	photos    repositories.PhotoRepository
	musicians repositories.MusicianRepository
}

// NewPhotoService creates a new PhotoService
func NewPhotoService(photos repositories.PhotoRepository, musicians repositories.MusicianRepository) *PhotoService {
	return &PhotoService{photos: photos, musicians: musicians}
}

// Upload decodes the picture, produces the display copy and thumbnail,
// and stores both, replacing any existing photo.
func (s *PhotoService) Upload(ctx context.Context, musicianID int64, content []byte, mimeType string) error {
	exists, err := s.musicians.Exists(ctx, musicianID)
	if err != nil {
		return fmt.Errorf("failed to check musician existence: %w", err)
	}
	if !exists {
		return entities.ErrNotFound
	}

	if !strings.HasPrefix(mimeType, "image/") {
		return ErrNotAnImage
	}

	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return ErrNotAnImage
	}

	display, err := encodeJPEG(imaging.Fit(img, photoMaxWidth, photoMaxHeight, imaging.Lanczos))
	if err != nil {
		return fmt.Errorf("failed to encode display photo: %w", err)
	}
	thumbnail, err := encodeJPEG(imaging.Fit(img, thumbMaxWidth, thumbMaxHeight, imaging.Lanczos))
	if err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return s.photos.Upsert(ctx, &entities.MusicianPhoto{
		MusicianID: musicianID,
		Content:    display,
		Thumbnail:  thumbnail,
		MimeType:   photoMimeType,
	})
}

// Get returns the display copy, or the thumbnail when thumb is true.
func (s *PhotoService) Get(ctx context.Context, musicianID int64, thumb bool) ([]byte, string, error) {
	photo, err := s.photos.Get(ctx, musicianID)
	if err != nil {
		return nil, "", err
	}
	if thumb {
		return photo.Thumbnail, photo.MimeType, nil
	}
	return photo.Content, photo.MimeType, nil
}

// Remove deletes both stored copies of the musician's photo.
func (s *PhotoService) Remove(ctx context.Context, musicianID int64) error {
	return s.photos.Delete(ctx, musicianID)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DocumentService stores and retrieves files attached to musicians.
type DocumentService struct {
	documents repositories.DocumentRepository
	musicians repositories.MusicianRepository
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(documents repositories.DocumentRepository, musicians repositories.MusicianRepository) *DocumentService {
	return &DocumentService{documents: documents, musicians: musicians}
}

// Attach stores one uploaded file against a musician. Empty uploads are
// skipped without error, matching form submissions with blank file inputs.
func (s *DocumentService) Attach(ctx context.Context, musicianID int64, fileName, mimeType string, content []byte) error {
	if fileName == "" || len(content) == 0 {
		return nil
	}

	exists, err := s.musicians.Exists(ctx, musicianID)
	if err != nil {
		return fmt.Errorf("failed to check musician existence: %w", err)
	}
	if !exists {
		return entities.ErrNotFound
	}

	doc := &entities.MusicianDocument{
		MusicianID: musicianID,
		FileName:   fileName,
		MimeType:   mimeType,
		Content:    content,
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	return s.documents.Create(ctx, doc)
}

// Download returns a stored document with content.
func (s *DocumentService) Download(ctx context.Context, id int64) (*entities.MusicianDocument, error) {
	return s.documents.GetByID(ctx, id)
}

// ListForMusician returns document metadata for a musician.
func (s *DocumentService) ListForMusician(ctx context.Context, musicianID int64) ([]*entities.MusicianDocument, error) {
	return s.documents.ListByMusician(ctx, musicianID)
}
