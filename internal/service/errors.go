package service

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrQuoteNotAccepted and ErrQuoteAlreadyInvoiced are the
	// conversion preconditions; both leave no state mutated.
	ErrQuoteNotAccepted     = errors.New("quote is not accepted")
	ErrQuoteAlreadyInvoiced = errors.New("quote already has an invoice")

	// ErrConversionFailed wraps any lower-level persistence error
	// during the atomic conversion; the transaction has rolled back.
	ErrConversionFailed = errors.New("quote conversion failed")
)
