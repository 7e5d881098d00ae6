package bank

import "errors"

var (
	ErrAuthentication      = errors.New("authentication failed")
	ErrAccountExists       = errors.New("account already exists")
	ErrUnsupportedCurrency = errors.New("currency not supported by this bank")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("invalid amount")
)
