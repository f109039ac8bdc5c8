package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/services"
)

// InstrumentHandler serves the instrument CRUD surface and the
// spreadsheet import.
type InstrumentHandler struct {
	instruments services.InstrumentServiceInterface
}

// NewInstrumentHandler creates a new InstrumentHandler.
func NewInstrumentHandler(instruments services.InstrumentServiceInterface) *InstrumentHandler {
	return &InstrumentHandler{instruments: instruments}
}

// instrumentRequest is the create/edit submission. The play selection is
// the full submitted set of musician IDs.
type instrumentRequest struct {
	Name            string   `json:"name" binding:"required"`
	RowVersion      string   `json:"row_version"`
	PlayMusicianIDs []string `json:"play_musician_ids"`
}

func instrumentJSON(inst *entities.Instrument) gin.H {
	return gin.H{
		"id":                inst.ID,
		"name":              inst.Name,
		"play_musician_ids": inst.PlayedByMusicianIDs(),
		"created_by":        inst.CreatedBy,
		"row_version":       inst.RowVersion,
	}
}

// List handles GET /v1/instruments.
func (h *InstrumentHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	result, err := h.instruments.List(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(result.Items))
	for _, inst := range result.Items {
		items = append(items, instrumentJSON(inst))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"total_count": result.TotalCount,
		"page":        result.PageIndex,
		"page_size":   result.PageSize,
		"total_pages": result.TotalPages,
	})
}

// Get handles GET /v1/instruments/:id.
func (h *InstrumentHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	instrument, err := h.instruments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, instrumentJSON(instrument))
}

// Create handles POST /v1/instruments.
func (h *InstrumentHandler) Create(c *gin.Context) {
	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindErrors(err))
		return
	}
	instrument, err := h.instruments.Create(c.Request.Context(), actorFrom(c), req.Name, req.PlayMusicianIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, instrumentJSON(instrument))
}

// Update handles PUT /v1/instruments/:id with the same conflict contract
// as the musician edit.
func (h *InstrumentHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindErrors(err))
		return
	}

	instrument, err := h.instruments.Update(c.Request.Context(), actorFrom(c), id, req.Name, req.RowVersion, req.PlayMusicianIDs)
	var conflict *entities.VersionConflictError
	if errors.As(err, &conflict) {
		payload := gin.H{
			"error":     conflict.Error(),
			"conflict":  conflict.Diff,
			"attempted": req,
		}
		if lists, optErr := h.instruments.Options(c.Request.Context(), id); optErr == nil {
			payload["options"] = lists
		}
		c.JSON(http.StatusConflict, payload)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, instrumentJSON(instrument))
}

// Delete handles DELETE /v1/instruments/:id. Deleting an instrument some
// musician still plays is refused with a 409.
func (h *InstrumentHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.instruments.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Options handles GET /v1/instruments/:id/options. id 0 serves the blank
// create form.
func (h *InstrumentHandler) Options(c *gin.Context) {
	id, err := parseOptionalID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	lists, svcErr := h.instruments.Options(c.Request.Context(), id)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, lists)
}

// Import handles POST /v1/instruments/import: an .xlsx upload with one
// instrument name per row on the first worksheet.
func (h *InstrumentHandler) Import(c *gin.Context) {
	header, err := c.FormFile("workbook")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workbook file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	defer file.Close()

	instruments, err := services.ParseInstrumentWorkbook(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded file is not a readable workbook"})
		return
	}
	actor := actorFrom(c)
	for _, inst := range instruments {
		inst.CreatedBy = actor.Name
	}

	inserted, err := h.instruments.Import(c.Request.Context(), instruments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": inserted})
}
