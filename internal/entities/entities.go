package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"uniqueIndex;size:100" json:"username"`
	Email      string    `gorm:"uniqueIndex;size:255" json:"email"`
	FirstName  string    `gorm:"size:100" json:"first_name,omitempty"`
	SecondName string    `gorm:"size:100" json:"second_name,omitempty"`
	Address    string    `gorm:"size:512" json:"address,omitempty"`
	Role       UserRole  `gorm:"size:20;default:'user'" json:"role"`
	Banned     bool      `gorm:"default:false" json:"banned"`
	Holdings   []Holding `gorm:"foreignKey:UserID" json:"holdings,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Book is a catalog entry: one title and its pooled copy count.
// Available is mutated only through the catalog repository's conditional
// updates so it can never go negative.
type Book struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"index;size:512;uniqueIndex:idx_books_name_author" json:"name"`
	Author       string    `gorm:"index;size:256;uniqueIndex:idx_books_name_author" json:"author"`
	Available    int64     `gorm:"not null;default:0" json:"available"`
	Exchangeable bool      `gorm:"default:false" json:"exchangeable"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Holding records how many copies of a book a user currently possesses.
// One row per (user, book) pair; a row whose quantity reaches zero is
// deleted, never persisted.
type Holding struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_holdings_user_book;not null" json:"user_id"`
	BookID    uint      `gorm:"uniqueIndex:idx_holdings_user_book;not null" json:"book_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Book      Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (Holding) TableName() string {
	return "holdings"
}
