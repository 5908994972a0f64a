package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/bookswap/internal/audit"
	"github.com/openshelf/bookswap/internal/database/users"
	"github.com/openshelf/bookswap/internal/entities"
)

// UserStore defines database operations for user account management.
type UserStore interface {
	Create(user *entities.User) error
	GetByID(id uint) (*entities.User, error)
	List() ([]entities.User, error)
	Update(id uint, update users.UserUpdate) (*entities.User, error)
	SetBanned(id uint, banned bool) error
}

// UserHoldings lists a user's current holdings for the admin view.
type UserHoldings interface {
	ListForUser(userID uint) ([]entities.Holding, error)
}

type UsersController struct {
	store    UserStore
	holdings UserHoldings
	engine   TransferEngine
	audit    *audit.Service
}

func NewUsersController(store UserStore, holdings UserHoldings, engine TransferEngine, auditService *audit.Service) *UsersController {
	return &UsersController{store: store, holdings: holdings, engine: engine, audit: auditService}
}

type createUserRequest struct {
	Username   string            `json:"username" binding:"required"`
	Email      string            `json:"email" binding:"required"`
	FirstName  string            `json:"first_name"`
	SecondName string            `json:"second_name"`
	Address    string            `json:"address"`
	Role       entities.UserRole `json:"role"`
}

type updateUserRequest struct {
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	FirstName  *string `json:"first_name"`
	SecondName *string `json:"second_name"`
	Address    *string `json:"address"`
}

// List returns all user accounts.
// GET /api/users
func (uc *UsersController) List(c *gin.Context) {
	list, err := uc.store.List()
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

// Create adds a user account.
// POST /api/users
func (uc *UsersController) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and email are required")
		return
	}

	user := &entities.User{
		Username:   req.Username,
		Email:      req.Email,
		FirstName:  req.FirstName,
		SecondName: req.SecondName,
		Address:    req.Address,
		Role:       req.Role,
	}
	if err := uc.store.Create(user); err != nil {
		respondDomainError(c, err, "create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Get returns a single user account.
// GET /api/users/:id
func (uc *UsersController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := uc.store.GetByID(id)
	if err != nil {
		respondDomainError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update applies a partial update to a user's profile fields.
// PATCH /api/users/:id
func (uc *UsersController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid update payload")
		return
	}

	user, err := uc.store.Update(id, users.UserUpdate{
		Username:   req.Username,
		Email:      req.Email,
		FirstName:  req.FirstName,
		SecondName: req.SecondName,
		Address:    req.Address,
	})
	if err != nil {
		respondDomainError(c, err, "update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// TakenBooks lists the books a user currently holds.
// GET /api/users/:id/books
func (uc *UsersController) TakenBooks(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := uc.store.GetByID(id); err != nil {
		respondDomainError(c, err, "get user")
		return
	}

	list, err := uc.holdings.ListForUser(id)
	if err != nil {
		respondInternalError(c, err, "list user holdings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "holdings": list})
}

// Ban marks a user as banned from borrowing.
// POST /api/users/:id/ban
func (uc *UsersController) Ban(c *gin.Context) {
	uc.setBanned(c, true)
}

// Unban lifts a user's ban.
// POST /api/users/:id/unban
func (uc *UsersController) Unban(c *gin.Context) {
	uc.setBanned(c, false)
}

func (uc *UsersController) setBanned(c *gin.Context, banned bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := uc.store.SetBanned(id, banned); err != nil {
		respondDomainError(c, err, "set ban status")
		return
	}
	uc.audit.LogBan(CurrentUser(c).ID, id, banned)
	if banned {
		respondSuccess(c, "user banned")
		return
	}
	respondSuccess(c, "user unbanned")
}

// Delete removes a user account once all books are returned.
// DELETE /api/users/:id
func (uc *UsersController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := CurrentUser(c)
	if err := uc.engine.DeleteUser(c.Request.Context(), actor.ID, id); err != nil {
		respondDomainError(c, err, "delete user")
		return
	}
	respondSuccess(c, "user deleted")
}
