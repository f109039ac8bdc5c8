package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/services"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PerformanceHandler serves performance history and the summary report.
type PerformanceHandler struct {
	performances services.PerformanceServiceInterface
}

// NewPerformanceHandler creates a new PerformanceHandler.
func NewPerformanceHandler(performances services.PerformanceServiceInterface) *PerformanceHandler {
	return &PerformanceHandler{performances: performances}
}

type performanceRequest struct {
	MusicianID   int64   `json:"musician_id" binding:"required"`
	InstrumentID int64   `json:"instrument_id" binding:"required"`
	SongTitle    string  `json:"song_title" binding:"required"`
	FeePaid      float64 `json:"fee_paid" binding:"gte=0"`
	PerformedOn  string  `json:"performed_on" binding:"required"`
}

// Record handles POST /v1/performances.
func (h *PerformanceHandler) Record(c *gin.Context) {
	var req performanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindErrors(err))
		return
	}
	performedOn, err := time.Parse(dateLayout, req.PerformedOn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": map[string]string{"performed_on": "must be a date in the form " + dateLayout},
		})
		return
	}

	performance := &entities.Performance{
		MusicianID:   req.MusicianID,
		InstrumentID: req.InstrumentID,
		SongTitle:    req.SongTitle,
		FeePaid:      req.FeePaid,
		PerformedOn:  performedOn,
	}
	if err := h.performances.Record(c.Request.Context(), performance); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": performance.ID})
}

// ListForMusician handles GET /v1/musicians/:id/performances.
func (h *PerformanceHandler) ListForMusician(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	performances, err := h.performances.ListForMusician(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(performances))
	for _, p := range performances {
		item := gin.H{
			"id":           p.ID,
			"song_title":   p.SongTitle,
			"fee_paid":     p.FeePaid,
			"performed_on": p.PerformedOn.Format(dateLayout),
		}
		if p.Instrument != nil {
			item["instrument"] = p.Instrument.Name
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Summary handles GET /v1/performances/summary.
func (h *PerformanceHandler) Summary(c *gin.Context) {
	page, size := pageParams(c)
	result, err := h.performances.Summary(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(result.Items))
	for _, s := range result.Items {
		items = append(items, gin.H{
			"musician_id":        s.MusicianID,
			"musician":           s.FormalName,
			"total_performances": s.TotalPerformances,
			"average_fee_paid":   s.AverageFeePaid,
			"highest_fee_paid":   s.HighestFeePaid,
			"lowest_fee_paid":    s.LowestFeePaid,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"total_count": result.TotalCount,
		"page":        result.PageIndex,
		"page_size":   result.PageSize,
		"total_pages": result.TotalPages,
	})
}

// Export handles GET /v1/performances/export with an .xlsx download.
func (h *PerformanceHandler) Export(c *gin.Context) {
	data, err := h.performances.ExportSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("performances_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxMimeType, data)
}
