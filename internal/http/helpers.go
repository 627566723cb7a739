package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/booksdb/internal/catalog"
)

// ErrorResponse is the error body for every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // field-level validation errors
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "bad_request"})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "not_found"})
}

// respondCatalogError maps a catalog failure to a status code.
// Insert failures are the caller's fault; select and connection failures are not.
func respondCatalogError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, catalog.ErrInsert):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "insert_failed"})
	case errors.Is(err, catalog.ErrSelect):
		log.Printf("Catalog select error (%s): %v", context, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to retrieve data", Code: "select_failed"})
	case errors.Is(err, catalog.ErrConnection):
		log.Printf("Catalog connection error (%s): %v", context, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "service temporarily unavailable", Code: "connection_failed"})
	default:
		log.Printf("Internal error (%s): %v", context, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal"})
	}
}

// parseIDParam responds with 400 and returns false when the parameter is not an integer.
func parseIDParam(c *gin.Context, paramName string) (int, bool) {
	id, err := strconv.Atoi(c.Param(paramName))
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return id, true
}
