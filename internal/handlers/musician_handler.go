package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/internal/services"
)

// MusicianHandler serves the musician CRUD surface.
type MusicianHandler struct {
	musicians services.MusicianServiceInterface
	photos    services.PhotoServiceInterface
	documents services.DocumentServiceInterface
}

// NewMusicianHandler creates a new MusicianHandler.
func NewMusicianHandler(
	musicians services.MusicianServiceInterface,
	photos services.PhotoServiceInterface,
	documents services.DocumentServiceInterface,
) *MusicianHandler {
	return &MusicianHandler{musicians: musicians, photos: photos, documents: documents}
}

// musicianRequest is the create/edit submission. The play selection is the
// full submitted set of instrument IDs, as strings the way a form posts
// them; absent means remove all links.
type musicianRequest struct {
	FirstName         string   `json:"first_name" binding:"required"`
	MiddleName        string   `json:"middle_name"`
	LastName          string   `json:"last_name" binding:"required"`
	Phone             string   `json:"phone"`
	DOB               string   `json:"dob" binding:"required"`
	SIN               string   `json:"sin" binding:"required,len=9,numeric"`
	InstrumentID      int64    `json:"instrument_id" binding:"required"`
	RowVersion        string   `json:"row_version"`
	PlayInstrumentIDs []string `json:"play_instrument_ids"`
}

func (r *musicianRequest) fields(c *gin.Context) (services.MusicianFields, bool) {
	dob, err := time.Parse(dateLayout, r.DOB)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": map[string]string{"dob": "must be a date in the form " + dateLayout},
		})
		return services.MusicianFields{}, false
	}
	return services.MusicianFields{
		FirstName:    r.FirstName,
		MiddleName:   r.MiddleName,
		LastName:     r.LastName,
		Phone:        r.Phone,
		DOB:          dob,
		SIN:          r.SIN,
		InstrumentID: r.InstrumentID,
	}, true
}

func musicianJSON(m *entities.Musician) gin.H {
	out := gin.H{
		"id":                  m.ID,
		"first_name":          m.FirstName,
		"middle_name":         m.MiddleName,
		"last_name":           m.LastName,
		"formal_name":         m.FormalName(),
		"phone":               m.Phone,
		"dob":                 m.DOB.Format(dateLayout),
		"age":                 m.Age(),
		"sin":                 m.SIN,
		"instrument_id":       m.InstrumentID,
		"play_instrument_ids": m.PlayedInstrumentIDs(),
		"created_by":          m.CreatedBy,
		"row_version":         m.RowVersion,
	}
	if m.Instrument != nil {
		out["instrument"] = m.Instrument.Name
	}
	return out
}

// List handles GET /v1/musicians.
func (h *MusicianHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	instrumentID, _ := strconv.ParseInt(c.Query("instrument_id"), 10, 64)
	playsInstrumentID, _ := strconv.ParseInt(c.Query("plays_instrument_id"), 10, 64)

	query := repositories.MusicianQuery{
		Filter: repositories.MusicianFilter{
			SearchName:        c.Query("search_name"),
			SearchPhone:       c.Query("search_phone"),
			InstrumentID:      instrumentID,
			PlaysInstrumentID: playsInstrumentID,
		},
		SortField:      c.Query("sort"),
		SortDescending: c.Query("desc") == "1" || c.Query("desc") == "true",
		PageIndex:      page,
		PageSize:       size,
	}

	result, err := h.musicians.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(result.Items))
	for _, m := range result.Items {
		items = append(items, musicianJSON(m))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"total_count": result.TotalCount,
		"page":        result.PageIndex,
		"page_size":   result.PageSize,
		"total_pages": result.TotalPages,
	})
}

// Get handles GET /v1/musicians/:id.
func (h *MusicianHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	musician, err := h.musicians.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	out := musicianJSON(musician)

	docs, err := h.documents.ListForMusician(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	docList := make([]gin.H, 0, len(docs))
	for _, doc := range docs {
		docList = append(docList, gin.H{
			"id":        doc.ID,
			"file_name": doc.FileName,
			"mime_type": doc.MimeType,
		})
	}
	out["documents"] = docList

	_, _, err = h.photos.Get(c.Request.Context(), id, true)
	out["has_photo"] = err == nil

	c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/musicians.
func (h *MusicianHandler) Create(c *gin.Context) {
	var req musicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindErrors(err))
		return
	}
	fields, ok := req.fields(c)
	if !ok {
		return
	}

	musician, err := h.musicians.Create(c.Request.Context(), actorFrom(c), fields, req.PlayInstrumentIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, musicianJSON(musician))
}

// Update handles PUT /v1/musicians/:id. A stale version token yields a 409
// carrying the field diff, the attempted values, and the repopulated
// selection lists so the caller loses nothing.
func (h *MusicianHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req musicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindErrors(err))
		return
	}
	fields, ok := req.fields(c)
	if !ok {
		return
	}

	musician, err := h.musicians.Update(c.Request.Context(), actorFrom(c), id, fields, req.RowVersion, req.PlayInstrumentIDs)
	var conflict *entities.VersionConflictError
	if errors.As(err, &conflict) {
		h.respondConflict(c, id, &req, conflict)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, musicianJSON(musician))
}

func (h *MusicianHandler) respondConflict(c *gin.Context, id int64, attempted *musicianRequest, conflict *entities.VersionConflictError) {
	payload := gin.H{
		"error":     conflict.Error(),
		"conflict":  conflict.Diff,
		"attempted": attempted,
	}
	if lists, err := h.musicians.Options(c.Request.Context(), id); err == nil {
		payload["options"] = lists
	}
	c.JSON(http.StatusConflict, payload)
}

// Delete handles DELETE /v1/musicians/:id.
func (h *MusicianHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.musicians.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Options handles GET /v1/musicians/:id/options. id 0 serves the blank
// create form. The primary instrument dropdown rides along so one request
// populates the whole form.
func (h *MusicianHandler) Options(c *gin.Context) {
	id, err := parseOptionalID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	lists, err := h.musicians.Options(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	choices, err := h.musicians.InstrumentChoices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"selected":           lists.Selected,
		"available":          lists.Available,
		"instrument_choices": choices,
	})
}
