package exchange

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/bookswap/internal/audit"
	auditrepo "github.com/openshelf/bookswap/internal/database/audit"
	"github.com/openshelf/bookswap/internal/database/catalog"
	"github.com/openshelf/bookswap/internal/database/holdings"
	"github.com/openshelf/bookswap/internal/database/users"
	"github.com/openshelf/bookswap/internal/entities"
)

type fixture struct {
	db       *gorm.DB
	service  *Service
	catalog  *catalog.Repository
	holdings *holdings.Repository
	users    *users.Repository
	audit    *audit.Service
}

// setupFixture uses a file-backed database: the concurrency tests need
// multiple connections hitting the same store, which ":memory:" does not
// give us.
func setupFixture(t *testing.T) *fixture {
	dbPath := filepath.Join(t.TempDir(), "exchange_test.db")
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Holding{}, &entities.AuditEvent{})
	require.NoError(t, err)

	catalogRepo := catalog.NewRepository(db)
	holdingsRepo := holdings.NewRepository(db)
	usersRepo := users.NewRepository(db)
	auditService := audit.NewService(auditrepo.NewRepository(db))

	return &fixture{
		db:       db,
		service:  NewService(db, catalogRepo, holdingsRepo, usersRepo, auditService, 3),
		catalog:  catalogRepo,
		holdings: holdingsRepo,
		users:    usersRepo,
		audit:    auditService,
	}
}

func (f *fixture) createUser(t *testing.T, username string, banned bool) *entities.User {
	user := &entities.User{Username: username, Email: username + "@example.com", Banned: banned}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) createBook(t *testing.T, name string, available int64, exchangeable bool) *entities.Book {
	book := &entities.Book{Name: name, Author: "Author", Available: available, Exchangeable: exchangeable}
	require.NoError(t, f.db.Create(book).Error)
	return book
}

// totalCopies returns pool count plus all held copies for a title. Borrow
// and Return must never change this sum.
func (f *fixture) totalCopies(t *testing.T, bookID uint) int64 {
	available, _, err := f.catalog.Availability(bookID)
	require.NoError(t, err)

	var held int64
	err = f.db.Model(&entities.Holding{}).
		Where("book_id = ?", bookID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&held).Error
	require.NoError(t, err)

	return available + held
}

func TestService_Borrow(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := f.createUser(t, "borrower", false)
	book := f.createBook(t, "Borrowable", 5, true)

	t.Run("moves copies from pool to holding", func(t *testing.T) {
		result, err := f.service.Borrow(ctx, user.ID, book.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Quantity)
		assert.Equal(t, int64(3), result.Available)
		assert.Equal(t, int64(5), f.totalCopies(t, book.ID))
	})

	t.Run("repeated borrows accumulate", func(t *testing.T) {
		result, err := f.service.Borrow(ctx, user.ID, book.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Quantity)
		assert.Equal(t, int64(2), result.Available)
	})

	t.Run("insufficient stock leaves everything untouched", func(t *testing.T) {
		_, err := f.service.Borrow(ctx, user.ID, book.ID, 3)
		assert.ErrorIs(t, err, catalog.ErrInsufficientStock)

		available, _, err := f.catalog.Availability(book.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), available)

		holding, err := f.holdings.Get(user.ID, book.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), holding.Quantity)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := f.service.Borrow(ctx, user.ID, book.ID, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)

		_, err = f.service.Borrow(ctx, user.ID, book.ID, -1)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := f.service.Borrow(ctx, user.ID, 9999, 1)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.service.Borrow(ctx, 9999, book.ID, 1)
		assert.ErrorIs(t, err, users.ErrNotFound)
	})

	t.Run("banned user", func(t *testing.T) {
		banned := f.createUser(t, "banned", true)
		_, err := f.service.Borrow(ctx, banned.ID, book.ID, 1)
		assert.ErrorIs(t, err, ErrUserBanned)
	})

	t.Run("not exchangeable", func(t *testing.T) {
		frozen := f.createBook(t, "Frozen", 5, false)
		_, err := f.service.Borrow(ctx, user.ID, frozen.ID, 1)
		assert.ErrorIs(t, err, catalog.ErrNotExchangeable)
	})
}

func TestService_Return(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := f.createUser(t, "returner", false)
	book := f.createBook(t, "Returnable", 5, true)

	_, err := f.service.Borrow(ctx, user.ID, book.ID, 4)
	require.NoError(t, err)

	t.Run("partial return", func(t *testing.T) {
		result, err := f.service.Return(ctx, user.ID, book.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Quantity)
		assert.Equal(t, int64(4), result.Available)
		assert.Equal(t, int64(5), f.totalCopies(t, book.ID))
	})

	t.Run("over-return leaves everything untouched", func(t *testing.T) {
		_, err := f.service.Return(ctx, user.ID, book.ID, 2)
		assert.ErrorIs(t, err, holdings.ErrInsufficientHolding)

		assert.Equal(t, int64(5), f.totalCopies(t, book.ID))
		holding, err := f.holdings.Get(user.ID, book.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), holding.Quantity)
	})

	t.Run("full return deletes the holding", func(t *testing.T) {
		result, err := f.service.Return(ctx, user.ID, book.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Quantity)
		assert.Equal(t, int64(5), result.Available)

		_, err = f.holdings.Get(user.ID, book.ID)
		assert.ErrorIs(t, err, holdings.ErrNotHeld)
	})

	t.Run("returning with no holding", func(t *testing.T) {
		_, err := f.service.Return(ctx, user.ID, book.ID, 1)
		assert.ErrorIs(t, err, holdings.ErrNotHeld)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := f.service.Return(ctx, user.ID, book.ID, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("banned user may still return", func(t *testing.T) {
		banned := f.createUser(t, "banned-holder", false)
		_, err := f.service.Borrow(ctx, banned.ID, book.ID, 1)
		require.NoError(t, err)
		require.NoError(t, f.users.SetBanned(banned.ID, true))

		result, err := f.service.Return(ctx, banned.ID, book.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Quantity)
	})
}

// Two users working the same title: a failed borrow must not consume
// stock, and a later partial return must make that same borrow possible.
func TestService_BorrowReturnSequence(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice", false)
	bob := f.createUser(t, "bob", false)
	book := f.createBook(t, "Contested", 5, true)

	result, err := f.service.Borrow(ctx, alice.ID, book.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Available)

	_, err = f.service.Borrow(ctx, bob.ID, book.ID, 3)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	result, err = f.service.Return(ctx, alice.ID, book.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Quantity)
	assert.Equal(t, int64(4), result.Available)

	result, err = f.service.Borrow(ctx, bob.ID, book.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Quantity)
	assert.Equal(t, int64(1), result.Available)

	assert.Equal(t, int64(5), f.totalCopies(t, book.ID))
}

func TestService_ConcurrentBorrows(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	const stock = 10
	const borrowers = 20

	book := f.createBook(t, "Popular", stock, true)

	userIDs := make([]uint, borrowers)
	for i := range userIDs {
		user := f.createUser(t, fmt.Sprintf("reader-%d", i), false)
		userIDs[i] = user.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, borrowers)
	for i := 0; i < borrowers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Borrow(ctx, userIDs[i], book.ID, 1)
		}(i)
	}
	wg.Wait()

	var succeeded, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, catalog.ErrInsufficientStock):
			outOfStock++
		default:
			t.Errorf("unexpected borrow error: %v", err)
		}
	}

	// Exactly the stock's worth of borrows may win.
	assert.Equal(t, stock, succeeded)
	assert.Equal(t, borrowers-stock, outOfStock)

	available, _, err := f.catalog.Availability(book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)
	assert.Equal(t, int64(stock), f.totalCopies(t, book.ID))
}

func TestService_Restock(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	admin := f.createUser(t, "admin", false)
	book := f.createBook(t, "Restockable", 2, true)

	t.Run("adds copies", func(t *testing.T) {
		updated, err := f.service.Restock(ctx, admin.ID, book.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(5), updated.Available)
	})

	t.Run("removes copies", func(t *testing.T) {
		updated, err := f.service.Restock(ctx, admin.ID, book.ID, -5)
		require.NoError(t, err)
		assert.Equal(t, int64(0), updated.Available)
	})

	t.Run("refuses to go negative", func(t *testing.T) {
		_, err := f.service.Restock(ctx, admin.ID, book.ID, -1)
		assert.ErrorIs(t, err, catalog.ErrInvalidQuantity)
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := f.service.Restock(ctx, admin.ID, 9999, 1)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestService_DeleteUser(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	admin := f.createUser(t, "admin", false)
	user := f.createUser(t, "leaver", false)
	book := f.createBook(t, "Held", 5, true)

	_, err := f.service.Borrow(ctx, user.ID, book.ID, 2)
	require.NoError(t, err)

	t.Run("refuses while holdings remain", func(t *testing.T) {
		err := f.service.DeleteUser(ctx, admin.ID, user.ID)
		assert.ErrorIs(t, err, ErrOutstandingHoldings)

		_, err = f.users.GetByID(user.ID)
		require.NoError(t, err)
	})

	t.Run("succeeds after everything is returned", func(t *testing.T) {
		_, err := f.service.Return(ctx, user.ID, book.ID, 2)
		require.NoError(t, err)

		require.NoError(t, f.service.DeleteUser(ctx, admin.ID, user.ID))

		_, err = f.users.GetByID(user.ID)
		assert.ErrorIs(t, err, users.ErrNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := f.service.DeleteUser(ctx, admin.ID, 9999)
		assert.ErrorIs(t, err, users.ErrNotFound)
	})
}

func TestService_DeleteBook(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	admin := f.createUser(t, "admin", false)
	user := f.createUser(t, "holder", false)
	book := f.createBook(t, "Removable", 5, true)

	_, err := f.service.Borrow(ctx, user.ID, book.ID, 1)
	require.NoError(t, err)

	t.Run("refuses while copies are held", func(t *testing.T) {
		err := f.service.DeleteBook(ctx, admin.ID, book.ID)
		assert.ErrorIs(t, err, ErrBookInUse)
	})

	t.Run("succeeds after the copy comes back", func(t *testing.T) {
		_, err := f.service.Return(ctx, user.ID, book.ID, 1)
		require.NoError(t, err)

		require.NoError(t, f.service.DeleteBook(ctx, admin.ID, book.ID))

		_, err = f.catalog.GetByID(book.ID)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("unknown book", func(t *testing.T) {
		err := f.service.DeleteBook(ctx, admin.ID, 9999)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestService_AuditTrail(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := f.createUser(t, "audited", false)
	book := f.createBook(t, "Tracked", 5, true)

	_, err := f.service.Borrow(ctx, user.ID, book.ID, 2)
	require.NoError(t, err)

	_, err = f.service.Borrow(ctx, user.ID, book.ID, 99)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	require.Eventually(t, func() bool {
		_, total, err := f.audit.GetEventsForBook(book.ID, 10, 0)
		return err == nil && total == 2
	}, time.Second, 10*time.Millisecond)

	events, _, err := f.audit.GetEventsForBook(book.ID, 10, 0)
	require.NoError(t, err)

	var statuses []entities.AuditStatus
	for _, e := range events {
		assert.Equal(t, entities.AuditActionBorrow, e.Action)
		assert.NotEmpty(t, e.OperationID)
		statuses = append(statuses, e.Status)
	}
	assert.Contains(t, statuses, entities.AuditStatusSuccess)
	assert.Contains(t, statuses, entities.AuditStatusFailed)
}
