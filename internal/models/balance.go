package models

import "github.com/shopspring/decimal"

// UserBalance is one row of the derived balance projection. It is
// recomputed from the transaction stores on every read and must always
// equal a fresh per-user balance computation; it is never updated in
// place.
type UserBalance struct {
	// UserID identifies the user.
	UserID string

	// Balance is the user's total balance: fixed plus all pending
	// contributions.
	Balance decimal.Decimal

	// BalanceFixed is the fixed-ledger contribution only.
	BalanceFixed decimal.Decimal
}
