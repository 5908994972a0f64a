// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - CatalogStore: Book pool management (internal/http/books.go)
//   - HoldingsStore / BookHolders / UserHoldings: Holding views (internal/http)
//   - UserStore: Account management (internal/http/users.go)
//   - IdentityResolver: Request identity lookup (internal/http/identity.go)
//
// ## Transfer Engine
//
//   - TransferEngine: Borrow, return, restock and guarded deletes
//     (internal/http/exchange.go), implemented by exchange.Service.
//
// ## Background Work
//
//   - TaskEnqueuer: Durable task submission (internal/scheduler/audit_cleanup.go)
//   - MovementLogPruner: Retention pruning (internal/tasks/prune_audit_log.go)
//
// # Adding a New Store
//
// To add a new data domain:
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Give it a WithTx method when the exchange service needs to compose
//     its writes with other repositories in one transaction.
//
//  4. Add a compile-time check:
//
//     var _ SomeStore = (*Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
