package models

import "errors"

// Error kinds surfaced by the ledger. Callers discriminate with
// errors.Is; the concrete messages wrap these sentinels with context.
var (
	// ErrInvalidTransaction rejects a malformed transaction before
	// anything is written: equal source and target, a non-positive or
	// sub-cent amount, or a missing endpoint.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrBalanceTooLow rejects a pending transaction that would push the
	// paying user below the configured minimum balance.
	ErrBalanceTooLow = errors.New("balance too low")

	// ErrAlreadyCancelled guards cancellation idempotency: a fixed
	// transaction can be cancelled exactly once.
	ErrAlreadyCancelled = errors.New("transaction already cancelled")

	// ErrConsistencyViolation signals a broken internal invariant. It is
	// always a bug, never silently recovered.
	ErrConsistencyViolation = errors.New("ledger consistency violation")

	// ErrNotFound is returned when a referenced account, transaction or
	// dining list does not exist.
	ErrNotFound = errors.New("not found")
)
