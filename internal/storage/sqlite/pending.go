package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mealtab/kitty/internal/models"
)

const pendingColumns = "id, source_id, target_id, amount, order_moment, confirm_moment, description, created_by"

// CreatePendingTransaction persists a provisional transaction.
func (s *SQLiteStore) CreatePendingTransaction(ctx context.Context, tx *models.PendingTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO pending_transactions ("+pendingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		tx.ID,
		nullString(tx.SourceID),
		tx.TargetID,
		encodeAmount(tx.Amount),
		encodeMoment(tx.OrderMoment),
		encodeMoment(tx.ConfirmMoment),
		tx.Description,
		tx.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create pending transaction: %w", err)
	}

	return nil
}

// GetPendingTransaction retrieves a pending transaction by its ID.
func (s *SQLiteStore) GetPendingTransaction(ctx context.Context, txID string) (*models.PendingTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+pendingColumns+" FROM pending_transactions WHERE id = ?",
		txID,
	)
	return scanPending(row)
}

// UpdatePendingTransaction rewrites a pending transaction in place.
func (s *SQLiteStore) UpdatePendingTransaction(ctx context.Context, tx *models.PendingTransaction) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE pending_transactions SET source_id = ?, target_id = ?, amount = ?, order_moment = ?, confirm_moment = ?, description = ?, created_by = ? WHERE id = ?",
		nullString(tx.SourceID),
		tx.TargetID,
		encodeAmount(tx.Amount),
		encodeMoment(tx.OrderMoment),
		encodeMoment(tx.ConfirmMoment),
		tx.Description,
		tx.CreatedBy,
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pending transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update pending transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: pending transaction %s", models.ErrNotFound, tx.ID)
	}

	return nil
}

// DeletePendingTransaction removes a pending transaction outright.
func (s *SQLiteStore) DeletePendingTransaction(ctx context.Context, txID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM pending_transactions WHERE id = ?",
		txID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete pending transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete pending transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: pending transaction %s", models.ErrNotFound, txID)
	}

	return nil
}

// ListExpiredPending retrieves the pending transactions whose confirm
// moment is at or before asOf, oldest expiry first.
func (s *SQLiteStore) ListExpiredPending(ctx context.Context, asOf time.Time) ([]*models.PendingTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+pendingColumns+" FROM pending_transactions WHERE confirm_moment <= ? ORDER BY confirm_moment, id",
		encodeMoment(asOf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired pending transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.PendingTransaction
	for rows.Next() {
		tx, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending transactions: %w", err)
	}

	return txs, nil
}

// FinalizePending migrates a pending transaction into the fixed ledger.
// The delete and insert run in one SQL transaction; the delete's
// rows-affected count is the compare-and-swap that stops a concurrent
// finalizer from inserting the fixed row twice.
func (s *SQLiteStore) FinalizePending(ctx context.Context, txID string, confirm time.Time) (*models.FixedTransaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT "+pendingColumns+" FROM pending_transactions WHERE id = ?",
		txID,
	)
	pending, err := scanPending(row)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, nil // Already migrated
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM pending_transactions WHERE id = ?", txID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete pending transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to delete pending transaction: %w", err)
	}
	if n == 0 {
		return nil, nil // Lost the race to a concurrent finalizer
	}

	fixed := pending.FixedForm(confirm)
	prepareFixed(fixed)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO fixed_transactions ("+fixedColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)",
		fixedInsertArgs(fixed)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert fixed transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit finalization: %w", err)
	}

	return fixed, nil
}

func scanPending(row rowScanner) (*models.PendingTransaction, error) {
	var (
		tx            models.PendingTransaction
		sourceID      sql.NullString
		amount        string
		orderMoment   int64
		confirmMoment int64
	)
	err := row.Scan(
		&tx.ID,
		&sourceID,
		&tx.TargetID,
		&amount,
		&orderMoment,
		&confirmMoment,
		&tx.Description,
		&tx.CreatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Transaction not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending transaction: %w", err)
	}

	tx.SourceID = sourceID.String
	tx.OrderMoment = decodeMoment(orderMoment)
	tx.ConfirmMoment = decodeMoment(confirmMoment)
	if tx.Amount, err = decodeAmount(amount); err != nil {
		return nil, err
	}

	return &tx, nil
}
