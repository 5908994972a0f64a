package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/bookswap/internal/database/catalog"
	"github.com/openshelf/bookswap/internal/database/holdings"
	"github.com/openshelf/bookswap/internal/database/users"
	"github.com/openshelf/bookswap/internal/exchange"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data   any   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server
// Error response. The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// --- Success Response Helpers ---

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// parseIDParam extracts a numeric path parameter, responding with 400 on
// failure.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+name+" parameter")
		return 0, false
	}
	return uint(id), true
}

// parsePagination reads limit/offset query parameters with bounds.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}

// errorKind maps each domain error to its HTTP status and a machine
// readable code. The presentation layer owns all user-facing wording; the
// exchange core only returns error kinds.
var errorKinds = []struct {
	sentinel error
	status   int
	code     string
}{
	{catalog.ErrNotFound, http.StatusNotFound, "not_found"},
	{users.ErrNotFound, http.StatusNotFound, "not_found"},
	{holdings.ErrNotHeld, http.StatusConflict, "not_held"},
	{catalog.ErrNotExchangeable, http.StatusConflict, "not_exchangeable"},
	{catalog.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{holdings.ErrInsufficientHolding, http.StatusConflict, "insufficient_holding"},
	{exchange.ErrUserBanned, http.StatusForbidden, "user_banned"},
	{exchange.ErrOutstandingHoldings, http.StatusConflict, "outstanding_holdings"},
	{exchange.ErrBookInUse, http.StatusConflict, "book_in_use"},
	{exchange.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{catalog.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{holdings.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{catalog.ErrDuplicateBook, http.StatusConflict, "duplicate_book"},
	{users.ErrUserExists, http.StatusConflict, "user_exists"},
	{users.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
}

// respondDomainError translates a domain error into the matching HTTP
// response; anything unrecognized is treated as a storage fault.
func respondDomainError(c *gin.Context, err error, context string) {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.sentinel) {
			c.JSON(kind.status, ErrorResponse{Error: err.Error(), Code: kind.code})
			return
		}
	}
	respondInternalError(c, err, context)
}
