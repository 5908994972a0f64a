package exchange

import "errors"

var (
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrUserBanned          = errors.New("user is banned from borrowing")
	ErrOutstandingHoldings = errors.New("user still holds borrowed books")
	ErrBookInUse           = errors.New("book is held by at least one user")
	ErrStorage             = errors.New("storage transaction failed")
)
