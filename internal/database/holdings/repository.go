// Package holdings provides database operations for per-user book holdings.
//
// A holding is one row per (user, book) pair; repeated borrows accumulate
// into the same row and a row whose quantity reaches zero is deleted. Both
// the upsert and the decrement are single atomic statements keyed on the
// composite (user_id, book_id) index.
//
// # Usage
//
//	repo := holdings.NewRepository(db)
//	err := repo.Add(userID, bookID, 2)
package holdings

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/bookswap/internal/entities"
)

var (
	ErrNotHeld             = errors.New("user holds no copies of this book")
	ErrInsufficientHolding = errors.New("return quantity exceeds held quantity")
	ErrInvalidQuantity     = errors.New("invalid quantity")
)

// Repository handles all holdings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new holdings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Get retrieves the holding for a (user, book) pair.
func (r *Repository) Get(userID, bookID uint) (*entities.Holding, error) {
	var holding entities.Holding
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotHeld
	}
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

// ListForUser returns all holdings of a user with book details preloaded.
func (r *Repository) ListForUser(userID uint) ([]entities.Holding, error) {
	var list []entities.Holding
	err := r.db.Preload("Book").Where("user_id = ?", userID).Order("book_id ASC").Find(&list).Error
	return list, err
}

// ListForBook returns all holdings of a book across users.
func (r *Repository) ListForBook(bookID uint) ([]entities.Holding, error) {
	var list []entities.Holding
	err := r.db.Where("book_id = ?", bookID).Order("user_id ASC").Find(&list).Error
	return list, err
}

// CountForUser returns how many distinct books the user currently holds.
func (r *Repository) CountForUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Holding{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountForBook returns how many users currently hold the book.
func (r *Repository) CountForBook(bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Holding{}).Where("book_id = ?", bookID).Count(&count).Error
	return count, err
}

// Add records count newly borrowed copies. A single upsert on the
// (user_id, book_id) key either creates the holding or accumulates into
// the existing one, so two concurrent borrows by the same user never race
// each other into separate rows.
func (r *Repository) Add(userID, bookID uint, count int64) error {
	if count < 1 {
		return ErrInvalidQuantity
	}

	holding := entities.Holding{
		UserID:   userID,
		BookID:   bookID,
		Quantity: count,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity": gorm.Expr("quantity + ?", count),
		}),
	}).Create(&holding).Error
	if err != nil {
		return fmt.Errorf("failed to add holding: %w", err)
	}
	return nil
}

// Remove gives back count copies. The decrement is conditional on the
// current quantity covering the request; a holding that reaches zero is
// deleted rather than persisted.
func (r *Repository) Remove(userID, bookID uint, count int64) error {
	if count < 1 {
		return ErrInvalidQuantity
	}

	result := r.db.Model(&entities.Holding{}).
		Where("user_id = ? AND book_id = ? AND quantity >= ?", userID, bookID, count).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", count))
	if result.Error != nil {
		return fmt.Errorf("failed to remove holding: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		holding, err := r.Get(userID, bookID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %d held, %d requested", ErrInsufficientHolding, holding.Quantity, count)
	}

	err := r.db.Where("user_id = ? AND book_id = ? AND quantity = 0", userID, bookID).
		Delete(&entities.Holding{}).Error
	if err != nil {
		return fmt.Errorf("failed to clean up empty holding: %w", err)
	}
	return nil
}
