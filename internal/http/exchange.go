package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/bookswap/internal/entities"
	"github.com/openshelf/bookswap/internal/exchange"
)

// TransferEngine defines the inventory operations exposed over HTTP.
type TransferEngine interface {
	Borrow(ctx context.Context, userID, bookID uint, count int64) (*exchange.TransferResult, error)
	Return(ctx context.Context, userID, bookID uint, count int64) (*exchange.TransferResult, error)
	Restock(ctx context.Context, actorID, bookID uint, delta int64) (*entities.Book, error)
	DeleteBook(ctx context.Context, actorID, bookID uint) error
	DeleteUser(ctx context.Context, actorID, userID uint) error
}

// HoldingsStore lists the caller's current holdings.
type HoldingsStore interface {
	ListForUser(userID uint) ([]entities.Holding, error)
}

type ExchangeController struct {
	engine   TransferEngine
	holdings HoldingsStore
}

func NewExchangeController(engine TransferEngine, holdings HoldingsStore) *ExchangeController {
	return &ExchangeController{engine: engine, holdings: holdings}
}

type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

type restockRequest struct {
	Delta int64 `json:"delta"`
}

// Borrow takes copies of a book into the caller's collection.
// POST /api/books/:id/borrow
func (ec *ExchangeController) Borrow(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	req := quantityRequest{Quantity: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid borrow payload")
			return
		}
	}

	user := CurrentUser(c)
	result, err := ec.engine.Borrow(c.Request.Context(), user.ID, bookID, req.Quantity)
	if err != nil {
		respondDomainError(c, err, "borrow")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Return gives copies of a book back to the pool.
// POST /api/books/:id/return
func (ec *ExchangeController) Return(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	req := quantityRequest{Quantity: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid return payload")
			return
		}
	}

	user := CurrentUser(c)
	result, err := ec.engine.Return(c.Request.Context(), user.ID, bookID, req.Quantity)
	if err != nil {
		respondDomainError(c, err, "return")
		return
	}
	c.JSON(http.StatusOK, result)
}

// MyBooks lists the caller's current holdings.
// GET /api/me/books
func (ec *ExchangeController) MyBooks(c *gin.Context) {
	user := CurrentUser(c)
	list, err := ec.holdings.ListForUser(user.ID)
	if err != nil {
		respondInternalError(c, err, "list holdings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": list})
}

// Restock adjusts a book's pool count.
// POST /api/books/:id/restock
func (ec *ExchangeController) Restock(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "delta is required")
		return
	}

	user := CurrentUser(c)
	book, err := ec.engine.Restock(c.Request.Context(), user.ID, bookID, req.Delta)
	if err != nil {
		respondDomainError(c, err, "restock")
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook removes a title from the catalog unless copies are still held.
// DELETE /api/books/:id
func (ec *ExchangeController) DeleteBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user := CurrentUser(c)
	if err := ec.engine.DeleteBook(c.Request.Context(), user.ID, bookID); err != nil {
		respondDomainError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}

// DeleteMe removes the caller's own account once all books are returned.
// DELETE /api/me
func (ec *ExchangeController) DeleteMe(c *gin.Context) {
	user := CurrentUser(c)
	if err := ec.engine.DeleteUser(c.Request.Context(), user.ID, user.ID); err != nil {
		respondDomainError(c, err, "delete own account")
		return
	}
	respondSuccess(c, "account deleted")
}
