// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations
//	├── catalog/         # Book pool: availability, reserve/release, restock
//	├── holdings/        # Per-user holdings: upsert, decrement, cleanup
//	├── users/           # User account management
//	└── audit/           # Audit event log
//
// Each sub-package provides a Repository type with domain-specific
// operations:
//
//	db, err := database.NewDatabase("./bookswap.db")
//
//	catalogRepo := catalog.NewRepository(db.DB)
//	holdingsRepo := holdings.NewRepository(db.DB)
//
// Repositories expose a WithTx method returning a copy bound to an open
// transaction, so the exchange service can combine catalog and holding
// mutations into one atomic unit:
//
//	db.DB.Transaction(func(tx *gorm.DB) error {
//		if err := catalogRepo.WithTx(tx).Reserve(bookID, n); err != nil {
//			return err
//		}
//		return holdingsRepo.WithTx(tx).Add(userID, bookID, n)
//	})
package database
