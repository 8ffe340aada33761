package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiningList is the read model of a dining list, maintained by the
// dining-list collaborator. The ledger only needs the fields that drive
// kitchen-cost charging.
type DiningList struct {
	// ID is the unique identifier for the list (UUID format).
	ID string

	// Name labels the list in charge descriptions, e.g. the dish or the
	// hosting association.
	Name string

	// Date is the day the list is served.
	Date time.Time

	// KitchenCost is the per-diner charge for shared kitchen use.
	KitchenCost decimal.Decimal

	// CollectionAccountID is the account that receives the kitchen-cost
	// payments, normally the special kitchen_cost account.
	CollectionAccountID string
}

// DiningEntry is one diner's participation in a dining list. An entry
// with an empty TransactionID and a tracked list represents an
// unresolved (provisional) kitchen-cost charge.
type DiningEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// ListID is the dining list the entry belongs to.
	ListID string

	// AccountID is the diner's account. Always a user account; an
	// association is never debited for a dining charge.
	AccountID string

	// Cost is the kitchen cost assigned to this entry.
	Cost decimal.Decimal

	// CreatedAt is when the diner signed up.
	CreatedAt time.Time

	// TransactionID links to the fixed transaction produced when the
	// entry was finalized. Empty while the charge is provisional. The
	// link is kept so a later removal of the entry can locate and
	// cancel its charge.
	TransactionID string
}

// Resolved reports whether the entry's charge has been finalized.
func (e *DiningEntry) Resolved() bool {
	return e.TransactionID != ""
}

// DiningListTracker marks a dining list that still has unresolved
// kitchen-cost charges. The tracker exists exactly while the list's
// charges are provisional and is deleted in the same atomic unit that
// finalizes them.
type DiningListTracker struct {
	// ListID is the tracked dining list.
	ListID string
}

// DiningCharge is a provisional kitchen-cost transaction computed from a
// dining entry of a tracked list. Charges are a read-only view: they are
// never stored and cannot be created or deleted directly, only
// enumerated and summed.
type DiningCharge struct {
	// EntryID is the dining entry the charge derives from.
	EntryID string

	// ListID is the dining list the charge belongs to.
	ListID string

	// SourceID is the diner's account.
	SourceID string

	// TargetID is the list's collection account.
	TargetID string

	// Amount is the entry's assigned kitchen cost.
	Amount decimal.Decimal

	// Moment is when the diner signed up.
	Moment time.Time

	// Description labels the charge, derived from the list name.
	Description string
}
