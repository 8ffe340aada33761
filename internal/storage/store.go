// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealtab/kitty/internal/models"
)

// Store defines the interface for ledger storage operations. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the ledger service.
//
// The pending-to-fixed migration methods (FinalizePending,
// FinalizeDiningList) are the system's central consistency point: each
// implementation must perform the delete and insert in one atomic unit
// so that no reader ever observes a charge both pending and fixed, or
// neither, and so that concurrent finalizers cannot double-insert.
type Store interface {
	// CreateAccount persists a new account. The account.ID field will be
	// populated by the store. Fails when the holder already has an
	// account (one account per user/association is a schema invariant).
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccount retrieves an account by its ID.
	// Returns nil and no error if the account is not found.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)

	// FindAccount retrieves the account held by the referenced entity.
	// Returns nil and no error if the entity has no account.
	FindAccount(ctx context.Context, ref models.EntityRef) (*models.Account, error)

	// ListUserAccounts retrieves every user-held account.
	ListUserAccounts(ctx context.Context) ([]*models.Account, error)

	// CreateFixedTransaction appends a transaction to the fixed ledger.
	// The transaction.ID field will be populated by the store.
	CreateFixedTransaction(ctx context.Context, tx *models.FixedTransaction) error

	// GetFixedTransaction retrieves a fixed transaction by its ID.
	// Returns nil and no error if the transaction is not found.
	GetFixedTransaction(ctx context.Context, txID string) (*models.FixedTransaction, error)

	// ListFixedByAccount retrieves the fixed transactions touching the
	// account (as source or target, cancelled included), newest order
	// moment first.
	ListFixedByAccount(ctx context.Context, accountID string) ([]*models.FixedTransaction, error)

	// CancelFixedTransaction stamps the transaction cancelled. The
	// check-then-set is atomic: of two concurrent callers exactly one
	// succeeds and the other gets models.ErrAlreadyCancelled.
	CancelFixedTransaction(ctx context.Context, txID, byUserID string, moment time.Time) error

	// CreatePendingTransaction persists a provisional transaction.
	// The transaction.ID field will be populated by the store.
	CreatePendingTransaction(ctx context.Context, tx *models.PendingTransaction) error

	// GetPendingTransaction retrieves a pending transaction by its ID.
	// Returns nil and no error if the transaction is not found.
	GetPendingTransaction(ctx context.Context, txID string) (*models.PendingTransaction, error)

	// UpdatePendingTransaction rewrites a pending transaction in place.
	UpdatePendingTransaction(ctx context.Context, tx *models.PendingTransaction) error

	// DeletePendingTransaction removes a pending transaction outright,
	// leaving no trace.
	DeletePendingTransaction(ctx context.Context, txID string) error

	// ListExpiredPending retrieves the pending transactions whose
	// confirm moment is at or before asOf.
	ListExpiredPending(ctx context.Context, asOf time.Time) ([]*models.PendingTransaction, error)

	// FinalizePending atomically deletes the pending transaction and
	// inserts its fixed form confirmed at the given moment. Returns the
	// inserted fixed transaction, or nil and no error when the pending
	// row no longer exists (already migrated by a concurrent caller).
	FinalizePending(ctx context.Context, txID string, confirm time.Time) (*models.FixedTransaction, error)

	// CreateDiningList persists a dining-list read model row.
	// The list.ID field will be populated by the store.
	CreateDiningList(ctx context.Context, list *models.DiningList) error

	// GetDiningList retrieves a dining list by its ID.
	// Returns nil and no error if the list is not found.
	GetDiningList(ctx context.Context, listID string) (*models.DiningList, error)

	// AddDiningEntry persists a participation entry. Fails with
	// models.ErrInvalidTransaction when the diner account is not a user
	// account: associations are never debited for dining charges.
	AddDiningEntry(ctx context.Context, entry *models.DiningEntry) error

	// TrackDiningList marks the list as having unresolved charges.
	// Tracking an already-tracked list is a no-op.
	TrackDiningList(ctx context.Context, listID string) error

	// HasDiningTracker reports whether the list is tracked.
	HasDiningTracker(ctx context.Context, listID string) (bool, error)

	// ListTrackedListsBefore retrieves the IDs of tracked dining lists
	// whose date is at or before the cutoff.
	ListTrackedListsBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// ListUnresolvedEntries retrieves the list's entries that have not
	// yet produced a fixed transaction, oldest sign-up first.
	ListUnresolvedEntries(ctx context.Context, listID string) ([]*models.DiningEntry, error)

	// FinalizeDiningList atomically inserts one fixed transaction per
	// unresolved entry of the tracked list, writes each entry's
	// back-reference, and deletes the tracker. Returns the inserted
	// transactions, or nil and no error when the list is not tracked
	// (already finalized by a concurrent caller).
	FinalizeDiningList(ctx context.Context, listID string, confirm time.Time) ([]*models.FixedTransaction, error)

	// SumFixed computes the account's fixed-ledger balance delta:
	// incoming minus outgoing over non-cancelled fixed transactions.
	SumFixed(ctx context.Context, accountID string) (decimal.Decimal, error)

	// SumPending computes the account's delta over pending transactions.
	SumPending(ctx context.Context, accountID string) (decimal.Decimal, error)

	// SumDining computes the account's delta over the dining charges of
	// tracked lists.
	SumDining(ctx context.Context, accountID string) (decimal.Decimal, error)

	// SumFixedAll, SumPendingAll and SumDiningAll compute the per-source
	// deltas for every account touched by that source, keyed by account
	// ID. Used by the batched balance projection.
	SumFixedAll(ctx context.Context) (map[string]decimal.Decimal, error)
	SumPendingAll(ctx context.Context) (map[string]decimal.Decimal, error)
	SumDiningAll(ctx context.Context) (map[string]decimal.Decimal, error)

	// Close releases any resources held by the store.
	Close() error
}
