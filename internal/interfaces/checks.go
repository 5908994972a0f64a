package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/openshelf/bookswap/internal/database/catalog"
	"github.com/openshelf/bookswap/internal/database/holdings"
	"github.com/openshelf/bookswap/internal/database/users"
	"github.com/openshelf/bookswap/internal/exchange"
	"github.com/openshelf/bookswap/internal/http"
	"github.com/openshelf/bookswap/internal/scheduler"
	"github.com/openshelf/bookswap/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// CatalogStore implementations
var _ http.CatalogStore = (*catalog.Repository)(nil)

// Holdings views
var _ http.HoldingsStore = (*holdings.Repository)(nil)
var _ http.BookHolders = (*holdings.Repository)(nil)
var _ http.UserHoldings = (*holdings.Repository)(nil)

// UserStore implementations
var _ http.UserStore = (*users.Repository)(nil)
var _ http.IdentityResolver = (*users.Repository)(nil)

// =============================================================================
// Transfer Engine
// =============================================================================

var _ http.TransferEngine = (*exchange.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ scheduler.TaskEnqueuer = (*tasks.Client)(nil)
