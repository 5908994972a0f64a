// Package users provides database operations for user account management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByID(id)
package users

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openshelf/bookswap/internal/entities"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrUserExists  = errors.New("user already exists")
	ErrInvalidRole = errors.New("invalid role")
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// UserUpdate describes the mutable profile fields. A nil field is left
// untouched. Banned is excluded: ban status changes only through SetBanned
// so it is always audited.
type UserUpdate struct {
	Username   *string
	Email      *string
	FirstName  *string
	SecondName *string
	Address    *string
}

// Create adds a new user account. Username and email must be unique.
func (r *Repository) Create(user *entities.User) error {
	if user.Role == "" {
		user.Role = entities.UserRoleUser
	}
	if !user.Role.Valid() {
		return ErrInvalidRole
	}

	var existing entities.User
	err := r.db.Where("username = ? OR email = ?", user.Username, user.Email).First(&existing).Error
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns all user accounts.
func (r *Repository) List() ([]entities.User, error) {
	var list []entities.User
	err := r.db.Order("id ASC").Find(&list).Error
	return list, err
}

// Update applies a partial update to a user's profile fields.
func (r *Repository) Update(id uint, update UserUpdate) (*entities.User, error) {
	values := map[string]any{}
	if update.Username != nil {
		values["username"] = *update.Username
	}
	if update.Email != nil {
		values["email"] = *update.Email
	}
	if update.FirstName != nil {
		values["first_name"] = *update.FirstName
	}
	if update.SecondName != nil {
		values["second_name"] = *update.SecondName
	}
	if update.Address != nil {
		values["address"] = *update.Address
	}

	if len(values) > 0 {
		result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(values)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	return r.GetByID(id)
}

// SetBanned flips the ban status of a user.
func (r *Repository) SetBanned(id uint, banned bool) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Update("banned", banned)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user account. Callers are expected to check for
// outstanding holdings first; the exchange service does this inside one
// transaction.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
