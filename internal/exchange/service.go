// Package exchange implements the inventory transfer engine: borrowing
// copies out of the shared catalog pool into per-user holdings and
// returning them, as atomic, conservation-preserving moves.
//
// Every operation runs as one database transaction. For any title the sum
// of the pool counter and all holding quantities is unchanged by Borrow
// and Return; only Restock changes it, and Restock is always audited.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/openshelf/bookswap/internal/audit"
	"github.com/openshelf/bookswap/internal/database/catalog"
	"github.com/openshelf/bookswap/internal/database/holdings"
	"github.com/openshelf/bookswap/internal/database/users"
	"github.com/openshelf/bookswap/internal/entities"
)

const defaultMaxRetries = 3

// retryBaseDelay spaces out retries of transactions that lost a lock race.
const retryBaseDelay = 25 * time.Millisecond

// TransferResult reports the state after a successful borrow or return.
type TransferResult struct {
	UserID    uint  `json:"user_id"`
	BookID    uint  `json:"book_id"`
	Quantity  int64 `json:"quantity"`  // copies the user now holds
	Available int64 `json:"available"` // copies left in the pool
}

// Service orchestrates transfers between the catalog pool and user
// holdings. All dependencies are injected; the service holds no global
// state.
type Service struct {
	db         *gorm.DB
	catalog    *catalog.Repository
	holdings   *holdings.Repository
	users      *users.Repository
	audit      *audit.Service
	maxRetries int
}

// NewService creates a new exchange service.
func NewService(db *gorm.DB, cat *catalog.Repository, hold *holdings.Repository, usr *users.Repository, auditService *audit.Service, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Service{
		db:         db,
		catalog:    cat,
		holdings:   hold,
		users:      usr,
		audit:      auditService,
		maxRetries: maxRetries,
	}
}

// Borrow moves count copies of a book from the pool into the user's
// holding. The availability check, the pool decrement and the holding
// upsert commit together or not at all: a failed holding write rolls the
// reservation back in the same transaction, so the pool is never left
// short.
func (s *Service) Borrow(ctx context.Context, userID, bookID uint, count int64) (*TransferResult, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		err = fmt.Errorf("%w: user %d", ErrUserBanned, userID)
		s.audit.LogTransfer(entities.AuditActionBorrow, userID, bookID, count, err)
		return nil, err
	}
	if count < 1 {
		return nil, ErrInvalidQuantity
	}

	result := &TransferResult{UserID: userID, BookID: bookID}
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.catalog.WithTx(tx).Reserve(bookID, count); err != nil {
			return err
		}
		if err := s.holdings.WithTx(tx).Add(userID, bookID, count); err != nil {
			return err
		}
		return s.readState(tx, userID, bookID, result)
	})
	s.audit.LogTransfer(entities.AuditActionBorrow, userID, bookID, count, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Return moves count copies from the user's holding back into the pool.
// The holding decrement and the pool increment are one transaction; no
// state where the holding shrank without the pool being credited is ever
// visible.
func (s *Service) Return(ctx context.Context, userID, bookID uint, count int64) (*TransferResult, error) {
	if count < 1 {
		return nil, ErrInvalidQuantity
	}

	result := &TransferResult{UserID: userID, BookID: bookID}
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.holdings.WithTx(tx).Remove(userID, bookID, count); err != nil {
			return err
		}
		if err := s.catalog.WithTx(tx).Release(bookID, count); err != nil {
			return err
		}
		return s.readState(tx, userID, bookID, result)
	})
	s.audit.LogTransfer(entities.AuditActionReturn, userID, bookID, count, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Restock adjusts a book's pool count by delta (positive or negative,
// never below zero). This is the only operation that changes the total
// number of circulating copies.
func (s *Service) Restock(ctx context.Context, actorID, bookID uint, delta int64) (*entities.Book, error) {
	var book *entities.Book
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		cat := s.catalog.WithTx(tx)
		if err := cat.Restock(bookID, delta); err != nil {
			return err
		}
		var readErr error
		book, readErr = cat.GetByID(bookID)
		return readErr
	})
	s.audit.LogRestock(actorID, bookID, delta, err)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteUser removes a user account. It refuses while the user still
// holds any borrowed copies, otherwise those copies would drop out of
// circulation with no way to return them.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID uint) error {
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		usr := s.users.WithTx(tx)
		if _, err := usr.GetByID(userID); err != nil {
			return err
		}
		count, err := s.holdings.WithTx(tx).CountForUser(userID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %d books to return", ErrOutstandingHoldings, count)
		}
		return usr.Delete(userID)
	})
	s.audit.LogUserDelete(actorID, userID, err)
	return err
}

// DeleteBook removes a title from the catalog. It refuses while any user
// holds copies of it.
func (s *Service) DeleteBook(ctx context.Context, actorID, bookID uint) error {
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		cat := s.catalog.WithTx(tx)
		if _, err := cat.GetByID(bookID); err != nil {
			return err
		}
		count, err := s.holdings.WithTx(tx).CountForBook(bookID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: held by %d users", ErrBookInUse, count)
		}
		return cat.Delete(bookID)
	})
	s.audit.LogBookDelete(actorID, bookID, err)
	return err
}

// readState fills result with the post-transfer holding and pool counts,
// read inside the same transaction so the numbers are the committed ones.
func (s *Service) readState(tx *gorm.DB, userID, bookID uint, result *TransferResult) error {
	holding, err := s.holdings.WithTx(tx).Get(userID, bookID)
	switch {
	case err == nil:
		result.Quantity = holding.Quantity
	case errors.Is(err, holdings.ErrNotHeld):
		result.Quantity = 0
	default:
		return err
	}

	available, _, err := s.catalog.WithTx(tx).Availability(bookID)
	if err != nil {
		return err
	}
	result.Available = available
	return nil
}

// runTx executes fn inside a transaction, retrying a bounded number of
// times when the transaction lost a lock race. Validation failures are
// returned unchanged and never retried; any other failure surfaces as a
// storage fault, with the rollback already performed by the transaction.
func (s *Service) runTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrStorage, ctx.Err())
			case <-time.After(retryBaseDelay * time.Duration(attempt)):
			}
			log.Printf("Retrying transaction after transient failure (attempt %d/%d): %v", attempt, s.maxRetries, err)
		}

		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isTransient(err) {
			break
		}
	}
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// isTransient reports whether the error means the transaction lost a lock
// race and is worth retrying. Invalid requests are never transient.
func isTransient(err error) bool {
	if isDomainError(err) {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// isDomainError reports whether the error is one of the named validation
// outcomes, which are surfaced to the caller unchanged.
func isDomainError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidQuantity,
		ErrUserBanned,
		ErrOutstandingHoldings,
		ErrBookInUse,
		catalog.ErrNotFound,
		catalog.ErrNotExchangeable,
		catalog.ErrInsufficientStock,
		catalog.ErrInvalidQuantity,
		catalog.ErrDuplicateBook,
		holdings.ErrNotHeld,
		holdings.ErrInsufficientHolding,
		holdings.ErrInvalidQuantity,
		users.ErrNotFound,
		users.ErrUserExists,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
