package projection

import (
	"errors"
	"net/http"
	"time"

	httperr "github.com/aevon-lab/projection-daemon/internal/core/errors"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the document query routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/documents/:projection", s.HandleListDocuments)
	r.GET("/v1/documents/:projection/:id", s.HandleGetDocument)
}

type documentQuery struct {
	Database string `form:"database"`
	Limit    int    `form:"limit"`
	Wait     string `form:"wait"` // Go duration, e.g. "2s"
}

// HandleGetDocument handles GET /v1/documents/:projection/:id
// Query parameters: database, wait
func (s *Service) HandleGetDocument(c *gin.Context) {
	req, ok := bindDocumentQuery(c)
	if !ok {
		return
	}
	req.ID = c.Param("id")

	resp, err := s.GetDocument(c.Request.Context(), req)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleListDocuments handles GET /v1/documents/:projection
// Query parameters: database, limit, wait
func (s *Service) HandleListDocuments(c *gin.Context) {
	req, ok := bindDocumentQuery(c)
	if !ok {
		return
	}

	resp, err := s.ListDocuments(c.Request.Context(), req)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bindDocumentQuery(c *gin.Context) (DocumentQueryRequest, bool) {
	var query documentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return DocumentQueryRequest{}, false
	}

	req := DocumentQueryRequest{
		Database:   query.Database,
		Projection: c.Param("projection"),
		Limit:      query.Limit,
	}
	if query.Wait != "" {
		wait, err := time.ParseDuration(query.Wait)
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpValidationError,
				Message:   "Invalid wait duration",
				Details:   err.Error(),
			})
			return DocumentQueryRequest{}, false
		}
		req.Wait = wait
	}
	return req, true
}

func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "Invalid document query",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrUnknownProjection):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpProjectionNotFound,
			Message:   err.Error(),
		})
	case errors.Is(err, ErrUnknownDatabase), errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query documents",
			Details:   err.Error(),
		})
	}
}
