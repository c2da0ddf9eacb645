package ledger

import "errors"

var (
	// ErrValidation means the input was rejected before any transaction
	// started.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound means a referenced profile, task, goal, reward, request,
	// or gift doesn't exist. Fatal for the operation; not retryable.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionFailed means the entity already moved out of the
	// status the operation requires. The caller should refetch.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInsufficientStars means the debit would drive the balance
	// negative. Balances never go below zero.
	ErrInsufficientStars = errors.New("insufficient stars")
)
