package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/bookswap/internal/database/catalog"
	"github.com/openshelf/bookswap/internal/entities"
)

// CatalogStore defines database operations for catalog management.
type CatalogStore interface {
	Create(book *entities.Book) error
	GetByID(id uint) (*entities.Book, error)
	ListAvailable() ([]entities.Book, error)
	ListAll() ([]entities.Book, error)
	Update(id uint, update catalog.BookUpdate) (*entities.Book, error)
	Availability(id uint) (int64, bool, error)
}

// BookHolders lists the users currently holding a book.
type BookHolders interface {
	ListForBook(bookID uint) ([]entities.Holding, error)
}

type BooksController struct {
	store    CatalogStore
	holdings BookHolders
}

func NewBooksController(store CatalogStore, holdings BookHolders) *BooksController {
	return &BooksController{store: store, holdings: holdings}
}

type createBookRequest struct {
	Name         string `json:"name" binding:"required"`
	Author       string `json:"author" binding:"required"`
	Available    int64  `json:"available"`
	Exchangeable bool   `json:"exchangeable"`
}

type updateBookRequest struct {
	Name         *string `json:"name"`
	Author       *string `json:"author"`
	Exchangeable *bool   `json:"exchangeable"`
}

// ListAvailable returns books with copies in the pool.
// GET /api/books
func (bc *BooksController) ListAvailable(c *gin.Context) {
	books, err := bc.store.ListAvailable()
	if err != nil {
		respondInternalError(c, err, "list available books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

// ListAll returns the full catalog, including titles with no copies left.
// GET /api/books/all
func (bc *BooksController) ListAll(c *gin.Context) {
	books, err := bc.store.ListAll()
	if err != nil {
		respondInternalError(c, err, "list all books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

// Create adds a book to the catalog.
// POST /api/books
func (bc *BooksController) Create(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name and author are required")
		return
	}

	book := &entities.Book{
		Name:         req.Name,
		Author:       req.Author,
		Available:    req.Available,
		Exchangeable: req.Exchangeable,
	}
	if err := bc.store.Create(book); err != nil {
		respondDomainError(c, err, "create book")
		return
	}
	c.JSON(http.StatusCreated, book)
}

// Get returns a single book together with the users currently holding it.
// GET /api/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetByID(id)
	if err != nil {
		respondDomainError(c, err, "get book")
		return
	}

	holders, err := bc.holdings.ListForBook(id)
	if err != nil {
		respondInternalError(c, err, "list book holders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"book": book, "holders": holders})
}

// Availability reports the pool count and exchange flag for a book.
// GET /api/books/:id/availability
func (bc *BooksController) Availability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	available, exchangeable, err := bc.store.Availability(id)
	if err != nil {
		respondDomainError(c, err, "book availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"book_id":      id,
		"available":    available,
		"exchangeable": exchangeable,
	})
}

// Update applies a partial update to a book's descriptive fields.
// PATCH /api/books/:id
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid update payload")
		return
	}

	book, err := bc.store.Update(id, catalog.BookUpdate{
		Name:         req.Name,
		Author:       req.Author,
		Exchangeable: req.Exchangeable,
	})
	if err != nil {
		respondDomainError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}
