// Package catalog provides database operations for the shared book pool.
//
// The pool counter (books.available) is the single point of contention per
// title. Reserve and Release are implemented as single conditional UPDATE
// statements so that concurrent borrowers can never together overdraw the
// pool; there is no read-then-write window.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	err := repo.Reserve(bookID, 2)
package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openshelf/bookswap/internal/entities"
)

var (
	ErrNotFound          = errors.New("book not found")
	ErrNotExchangeable   = errors.New("book is not available for exchange")
	ErrInsufficientStock = errors.New("not enough copies available")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrDuplicateBook     = errors.New("book with this name and author already exists")
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// BookUpdate describes the mutable catalog fields. A nil field is left
// untouched. Available is deliberately absent: the pool counter changes
// only through Reserve, Release and Restock.
type BookUpdate struct {
	Name         *string
	Author       *string
	Exchangeable *bool
}

// Create adds a new book to the catalog. Duplicate (name, author) pairs
// are rejected.
func (r *Repository) Create(book *entities.Book) error {
	_, err := r.GetByNameAndAuthor(book.Name, book.Author)
	if err == nil {
		return ErrDuplicateBook
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check existing book: %w", err)
	}
	if book.Available < 0 {
		return ErrInvalidQuantity
	}
	return r.db.Create(book).Error
}

// GetByNameAndAuthor retrieves a book by its unique (name, author) pair.
func (r *Repository) GetByNameAndAuthor(name, author string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("name = ? AND author = ?", name, author).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByID retrieves a book by ID.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListAvailable returns books with at least one copy in the pool.
func (r *Repository) ListAvailable() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("available > 0").Order("name ASC").Find(&books).Error
	return books, err
}

// ListAll returns the full catalog.
func (r *Repository) ListAll() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("name ASC").Find(&books).Error
	return books, err
}

// Update applies a partial update to a book's descriptive fields.
func (r *Repository) Update(id uint, update BookUpdate) (*entities.Book, error) {
	values := map[string]any{}
	if update.Name != nil {
		values["name"] = *update.Name
	}
	if update.Author != nil {
		values["author"] = *update.Author
	}
	if update.Exchangeable != nil {
		values["exchangeable"] = *update.Exchangeable
	}

	if len(values) > 0 {
		result := r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(values)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	return r.GetByID(id)
}

// Delete removes a book from the catalog. Callers are expected to check
// for outstanding holdings first; the exchange service does this inside
// one transaction.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Availability returns the current pool count and exchange flag for a book.
func (r *Repository) Availability(id uint) (available int64, exchangeable bool, err error) {
	book, err := r.GetByID(id)
	if err != nil {
		return 0, false, err
	}
	return book.Available, book.Exchangeable, nil
}

// Reserve atomically takes count copies out of the pool. The check and the
// decrement are one conditional UPDATE: it succeeds only when the book is
// exchangeable and has at least count copies. When no row is affected, a
// follow-up read decides which precondition failed.
func (r *Repository) Reserve(id uint, count int64) error {
	if count < 1 {
		return ErrInvalidQuantity
	}

	result := r.db.Model(&entities.Book{}).
		Where("id = ? AND exchangeable = ? AND available >= ?", id, true, count).
		UpdateColumn("available", gorm.Expr("available - ?", count))
	if result.Error != nil {
		return fmt.Errorf("failed to reserve copies: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	book, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if !book.Exchangeable {
		return fmt.Errorf("%w: book %d", ErrNotExchangeable, id)
	}
	return fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, book.Available, count)
}

// Release returns count copies to the pool. It is the compensating half of
// Reserve and must always be applied in the same transaction as the
// holding decrement during a return.
func (r *Repository) Release(id uint, count int64) error {
	if count < 1 {
		return ErrInvalidQuantity
	}

	result := r.db.Model(&entities.Book{}).
		Where("id = ?", id).
		UpdateColumn("available", gorm.Expr("available + ?", count))
	if result.Error != nil {
		return fmt.Errorf("failed to release copies: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Restock adjusts the pool by delta, which may be negative. The adjustment
// is a single conditional UPDATE that refuses to take the pool below zero.
// This is the only sanctioned way to change the total number of
// circulating copies.
func (r *Repository) Restock(id uint, delta int64) error {
	if delta == 0 {
		return ErrInvalidQuantity
	}

	result := r.db.Model(&entities.Book{}).
		Where("id = ? AND available + ? >= 0", id, delta).
		UpdateColumn("available", gorm.Expr("available + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to restock: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if _, err := r.GetByID(id); err != nil {
		return err
	}
	return fmt.Errorf("%w: restock of %d would make availability negative", ErrInvalidQuantity, delta)
}
