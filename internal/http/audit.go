package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/bookswap/internal/audit"
)

type AuditController struct {
	service *audit.Service
}

func NewAuditController(service *audit.Service) *AuditController {
	return &AuditController{service: service}
}

// List returns paginated audit events, optionally filtered by actor.
// GET /api/audit?actor_id=&limit=&offset=
func (ac *AuditController) List(c *gin.Context) {
	limit, offset := parsePagination(c)

	var actorID uint
	if raw := c.Query("actor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid actor_id parameter")
			return
		}
		actorID = uint(id)
	}

	events, total, err := ac.service.GetEvents(actorID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:   events,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// ForBook returns the movement history of a single title.
// GET /api/books/:id/audit
func (ac *AuditController) ForBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	events, total, err := ac.service.GetEventsForBook(id, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list book audit events")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:   events,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
