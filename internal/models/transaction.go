package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinTransactionAmount is the smallest amount a transaction may move.
var MinTransactionAmount = decimal.New(1, -2) // 0.01

// FixedTransaction is a permanent, audit-grade money movement between two
// accounts. Fixed transactions are never deleted; a mistaken entry is
// soft-cancelled instead, which excludes it from balances while keeping
// the audit trail intact.
type FixedTransaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// SourceID is the account the money comes from. Empty for external
	// deposits (money entering the ledger from outside).
	SourceID string

	// TargetID is the account the money goes to. Always set.
	TargetID string

	// Amount is the money moved, always positive with two decimal
	// places (minimum 0.01).
	Amount decimal.Decimal

	// OrderMoment is when the transaction was ordered. For entries that
	// started out pending this is the original order moment.
	OrderMoment time.Time

	// ConfirmMoment is when the transaction became fixed.
	ConfirmMoment time.Time

	// Description is a short human-readable reason for the transfer.
	Description string

	// CreatedBy is the ID of the user who ordered the transaction.
	CreatedBy string

	// Cancelled is the moment the transaction was cancelled, nil while
	// the transaction counts towards balances.
	Cancelled *time.Time

	// CancelledBy is the ID of the user who cancelled the transaction.
	CancelledBy string
}

// IsCancelled reports whether the transaction has been soft-cancelled.
func (t *FixedTransaction) IsCancelled() bool {
	return t.Cancelled != nil
}

// PendingTransaction is a provisional transfer. It stays mutable and
// deletable until its ConfirmMoment passes, at which point it must be
// migrated into the fixed ledger as-is. Deleting a pending transaction
// leaves no audit trace.
type PendingTransaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// SourceID is the account the money comes from. Empty for external
	// deposits.
	SourceID string

	// TargetID is the account the money goes to. Always set.
	TargetID string

	// Amount is the money moved, always positive with two decimal
	// places (minimum 0.01).
	Amount decimal.Decimal

	// OrderMoment is when the transaction was ordered.
	OrderMoment time.Time

	// ConfirmMoment is the expiry: once it passes the transaction is
	// finalized into the fixed ledger. Defaults to OrderMoment plus the
	// configured pending duration when left unset.
	ConfirmMoment time.Time

	// Description is a short human-readable reason for the transfer.
	Description string

	// CreatedBy is the ID of the user who ordered the transaction.
	CreatedBy string
}

// Expired reports whether the transaction is due for finalization at the
// given moment.
func (t *PendingTransaction) Expired(asOf time.Time) bool {
	return !t.ConfirmMoment.After(asOf)
}

// FixedForm returns the fixed transaction the pending transaction
// migrates into, confirmed at the given moment.
func (t *PendingTransaction) FixedForm(confirm time.Time) *FixedTransaction {
	return &FixedTransaction{
		SourceID:      t.SourceID,
		TargetID:      t.TargetID,
		Amount:        t.Amount,
		OrderMoment:   t.OrderMoment,
		ConfirmMoment: confirm,
		Description:   t.Description,
		CreatedBy:     t.CreatedBy,
	}
}
