package http

import (
	"github.com/gin-gonic/gin"
)

// RouterConfig receives all controller dependencies, improving testability
// and reducing parameter count.
type RouterConfig struct {
	Identity IdentityResolver
	Books    *BooksController
	Exchange *ExchangeController
	Users    *UsersController
	Audit    *AuditController
	Health   *HealthController
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", cfg.Health.Status)

	api := router.Group("/api")
	api.Use(IdentityMiddleware(cfg.Identity))
	{
		api.GET("/books", cfg.Books.ListAvailable)
		api.GET("/books/:id/availability", cfg.Books.Availability)

		api.POST("/books/:id/borrow", cfg.Exchange.Borrow)
		api.POST("/books/:id/return", cfg.Exchange.Return)
		api.GET("/me/books", cfg.Exchange.MyBooks)
		api.DELETE("/me", cfg.Exchange.DeleteMe)
	}

	admin := api.Group("")
	admin.Use(RequireAdmin())
	{
		admin.GET("/books/all", cfg.Books.ListAll)
		admin.POST("/books", cfg.Books.Create)
		admin.GET("/books/:id", cfg.Books.Get)
		admin.PATCH("/books/:id", cfg.Books.Update)
		admin.DELETE("/books/:id", cfg.Exchange.DeleteBook)
		admin.POST("/books/:id/restock", cfg.Exchange.Restock)
		admin.GET("/books/:id/audit", cfg.Audit.ForBook)

		admin.GET("/users", cfg.Users.List)
		admin.POST("/users", cfg.Users.Create)
		admin.GET("/users/:id", cfg.Users.Get)
		admin.PATCH("/users/:id", cfg.Users.Update)
		admin.DELETE("/users/:id", cfg.Users.Delete)
		admin.GET("/users/:id/books", cfg.Users.TakenBooks)
		admin.POST("/users/:id/ban", cfg.Users.Ban)
		admin.POST("/users/:id/unban", cfg.Users.Unban)

		admin.GET("/audit", cfg.Audit.List)
	}

	return router
}
