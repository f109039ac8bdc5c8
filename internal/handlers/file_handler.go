package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asakaida/gakudan/internal/services"
)

var errUploadTooLarge = errors.New("upload exceeds the size limit")

// FileHandler serves musician photos and attached documents. Uploads are
// bounded by the configured size limits.
type FileHandler struct {
	photos           services.PhotoServiceInterface
	documents        services.DocumentServiceInterface
	maxPhotoBytes    int64
	maxDocumentBytes int64
}

// NewFileHandler creates a new FileHandler. A limit of 0 leaves that
// upload kind unbounded.
func NewFileHandler(
	photos services.PhotoServiceInterface,
	documents services.DocumentServiceInterface,
	maxPhotoBytes, maxDocumentBytes int64,
) *FileHandler {
	return &FileHandler{
		photos:           photos,
		documents:        documents,
		maxPhotoBytes:    maxPhotoBytes,
		maxDocumentBytes: maxDocumentBytes,
	}
}

func readUpload(header *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, errUploadTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if maxBytes <= 0 {
		return io.ReadAll(file)
	}
	// The declared size can lie; read one byte past the limit to detect it.
	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > maxBytes {
		return nil, errUploadTooLarge
	}
	return content, nil
}

func respondUploadTooLarge(c *gin.Context, field string, maxBytes int64) {
	c.JSON(http.StatusBadRequest, gin.H{
		"errors": map[string]string{
			field: fmt.Sprintf("file exceeds the maximum size of %d bytes", maxBytes),
		},
	})
}

// UploadPhoto handles PUT /v1/musicians/:id/photo. The picture arrives as
// the "photo" multipart field and replaces any stored photo.
func (h *FileHandler) UploadPhoto(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	header, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	content, err := readUpload(header, h.maxPhotoBytes)
	if errors.Is(err, errUploadTooLarge) {
		respondUploadTooLarge(c, "photo", h.maxPhotoBytes)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	if err := h.photos.Upload(c.Request.Context(), id, content, header.Header.Get("Content-Type")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPhoto handles GET /v1/musicians/:id/photo. ?thumb=1 serves the
// thumbnail instead of the display copy.
func (h *FileHandler) GetPhoto(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	thumb := c.Query("thumb") == "1" || c.Query("thumb") == "true"
	content, mimeType, err := h.photos.Get(c.Request.Context(), id, thumb)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, mimeType, content)
}

// DeletePhoto handles DELETE /v1/musicians/:id/photo.
func (h *FileHandler) DeletePhoto(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.photos.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadDocuments handles POST /v1/musicians/:id/documents. Any number of
// files arrive under the "documents" field; blank file inputs are skipped.
func (h *FileHandler) UploadDocuments(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form is required"})
		return
	}

	stored := 0
	for _, header := range form.File["documents"] {
		if header.Filename == "" || header.Size == 0 {
			continue
		}
		content, err := readUpload(header, h.maxDocumentBytes)
		if errors.Is(err, errUploadTooLarge) {
			respondUploadTooLarge(c, "documents", h.maxDocumentBytes)
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		if err := h.documents.Attach(c.Request.Context(), id, header.Filename, header.Header.Get("Content-Type"), content); err != nil {
			respondError(c, err)
			return
		}
		stored++
	}
	c.JSON(http.StatusCreated, gin.H{"stored": stored})
}

// DownloadDocument handles GET /v1/documents/:id.
func (h *FileHandler) DownloadDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	doc, err := h.documents.Download(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.MimeType, doc.Content)
}
