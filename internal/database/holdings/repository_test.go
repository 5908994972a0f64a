package holdings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openshelf/bookswap/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Holding{})
	require.NoError(t, err)

	return db
}

func TestRepository_Add(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	t.Run("creates new holding", func(t *testing.T) {
		require.NoError(t, repo.Add(1, 10, 2))

		holding, err := repo.Get(1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), holding.Quantity)
	})

	t.Run("accumulates into the same row", func(t *testing.T) {
		require.NoError(t, repo.Add(1, 10, 3))

		holding, err := repo.Get(1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(5), holding.Quantity)

		// Still one row for the pair.
		var count int64
		require.NoError(t, db.Model(&entities.Holding{}).
			Where("user_id = ? AND book_id = ?", 1, 10).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("separate pairs get separate rows", func(t *testing.T) {
		require.NoError(t, repo.Add(2, 10, 1))
		require.NoError(t, repo.Add(1, 11, 1))

		holding, err := repo.Get(2, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), holding.Quantity)
	})

	t.Run("rejects non-positive count", func(t *testing.T) {
		assert.ErrorIs(t, repo.Add(1, 10, 0), ErrInvalidQuantity)
		assert.ErrorIs(t, repo.Add(1, 10, -1), ErrInvalidQuantity)
	})
}

func TestRepository_Remove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Add(1, 10, 5))

	t.Run("partial return keeps the row", func(t *testing.T) {
		require.NoError(t, repo.Remove(1, 10, 2))

		holding, err := repo.Get(1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(3), holding.Quantity)
	})

	t.Run("refuses to return more than held", func(t *testing.T) {
		err := repo.Remove(1, 10, 4)
		assert.ErrorIs(t, err, ErrInsufficientHolding)

		holding, err := repo.Get(1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(3), holding.Quantity)
	})

	t.Run("full return deletes the row", func(t *testing.T) {
		require.NoError(t, repo.Remove(1, 10, 3))

		_, err := repo.Get(1, 10)
		assert.ErrorIs(t, err, ErrNotHeld)
	})

	t.Run("returning with no holding", func(t *testing.T) {
		err := repo.Remove(1, 10, 1)
		assert.ErrorIs(t, err, ErrNotHeld)
	})

	t.Run("rejects non-positive count", func(t *testing.T) {
		assert.ErrorIs(t, repo.Remove(1, 10, 0), ErrInvalidQuantity)
	})
}

func TestRepository_Lists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	book := entities.Book{Name: "Listed", Author: "Author", Available: 5}
	require.NoError(t, db.Create(&book).Error)

	require.NoError(t, repo.Add(1, book.ID, 2))
	require.NoError(t, repo.Add(2, book.ID, 1))
	require.NoError(t, repo.Add(1, 99, 1))

	t.Run("list for user preloads book", func(t *testing.T) {
		list, err := repo.ListForUser(1)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Listed", list[0].Book.Name)
	})

	t.Run("list for book", func(t *testing.T) {
		list, err := repo.ListForBook(book.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("counts", func(t *testing.T) {
		userCount, err := repo.CountForUser(1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), userCount)

		bookCount, err := repo.CountForBook(book.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), bookCount)
	})

	t.Run("empty list for unknown user", func(t *testing.T) {
		list, err := repo.ListForUser(42)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
