package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/services"
	"github.com/asakaida/gakudan/internal/services/authz"
)

const dateLayout = "2006-01-02"

// idParam parses the :id path parameter. A malformed ID is reported and
// the request aborted.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// parseOptionalID parses a path ID where 0 is meaningful (the blank
// create form).
func parseOptionalID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// pageParams reads page and page_size query parameters. Out-of-range
// values are normalized downstream by the paging package.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	return page, size
}

// bindErrors converts a gin binding failure into the field error map the
// API contract promises.
func bindErrors(err error) gin.H {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := map[string]string{}
		for _, fe := range verrs {
			fields[fe.Field()] = "failed validation: " + fe.Tag()
		}
		return gin.H{"errors": fields}
	}
	return gin.H{"error": err.Error()}
}

// respondError maps domain error kinds to HTTP responses. Handlers with a
// richer contract (conflict payloads with repopulated selection lists)
// intercept those kinds before calling this.
func respondError(c *gin.Context, err error) {
	var validation *entities.ValidationError
	var unique *entities.UniqueViolationError
	var referential *entities.ReferentialIntegrityError
	var conflict *entities.VersionConflictError

	switch {
	case errors.Is(err, entities.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, entities.ErrDeletedConcurrently):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, authz.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrRetryExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotAnImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.As(err, &unique):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors": map[string]string{unique.Field: unique.Message},
		})
	case errors.As(err, &referential):
		c.JSON(http.StatusConflict, gin.H{"error": referential.Message})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":    conflict.Error(),
			"conflict": conflict.Diff,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
