package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mealtab/kitty/internal/models"
)

const fixedColumns = "id, source_id, target_id, amount, order_moment, confirm_moment, description, created_by, cancelled, cancelled_by"

// CreateFixedTransaction appends a transaction to the fixed ledger.
func (s *SQLiteStore) CreateFixedTransaction(ctx context.Context, tx *models.FixedTransaction) error {
	prepareFixed(tx)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO fixed_transactions ("+fixedColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)",
		fixedInsertArgs(tx)...,
	)
	if err != nil {
		return fmt.Errorf("failed to create fixed transaction: %w", err)
	}

	return nil
}

// GetFixedTransaction retrieves a fixed transaction by its ID.
func (s *SQLiteStore) GetFixedTransaction(ctx context.Context, txID string) (*models.FixedTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+fixedColumns+" FROM fixed_transactions WHERE id = ?",
		txID,
	)
	return scanFixed(row)
}

// ListFixedByAccount retrieves the fixed transactions touching the
// account, newest order moment first. Cancelled entries are included;
// they matter for audit views even though balances skip them.
func (s *SQLiteStore) ListFixedByAccount(ctx context.Context, accountID string) ([]*models.FixedTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fixedColumns+" FROM fixed_transactions WHERE source_id = ? OR target_id = ? ORDER BY order_moment DESC, id DESC",
		accountID, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixed transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.FixedTransaction
	for rows.Next() {
		tx, err := scanFixed(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fixed transactions: %w", err)
	}

	return txs, nil
}

// CancelFixedTransaction stamps the transaction cancelled. The WHERE
// clause on the cancelled column makes the check-then-set atomic: a
// second caller matches zero rows and gets ErrAlreadyCancelled.
func (s *SQLiteStore) CancelFixedTransaction(ctx context.Context, txID, byUserID string, moment time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE fixed_transactions SET cancelled = ?, cancelled_by = ? WHERE id = ? AND cancelled IS NULL",
		encodeMoment(moment), byUserID, txID,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to cancel transaction: %w", err)
	}
	if n == 0 {
		// Either the row is already cancelled or it never existed.
		existing, err := s.GetFixedTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: fixed transaction %s", models.ErrNotFound, txID)
		}
		return fmt.Errorf("%w: %s", models.ErrAlreadyCancelled, txID)
	}

	return nil
}

func prepareFixed(tx *models.FixedTransaction) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.OrderMoment.IsZero() {
		tx.OrderMoment = time.Now().UTC()
	}
	if tx.ConfirmMoment.IsZero() {
		tx.ConfirmMoment = tx.OrderMoment
	}
}

func fixedInsertArgs(tx *models.FixedTransaction) []any {
	return []any{
		tx.ID,
		nullString(tx.SourceID),
		tx.TargetID,
		encodeAmount(tx.Amount),
		encodeMoment(tx.OrderMoment),
		encodeMoment(tx.ConfirmMoment),
		tx.Description,
		tx.CreatedBy,
	}
}

func scanFixed(row rowScanner) (*models.FixedTransaction, error) {
	var (
		tx            models.FixedTransaction
		sourceID      sql.NullString
		amount        string
		orderMoment   int64
		confirmMoment int64
		cancelled     sql.NullInt64
		cancelledBy   sql.NullString
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
		&cancelled,
		&cancelledBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Transaction not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fixed transaction: %w", err)
	}

	tx.SourceID = sourceID.String
	tx.OrderMoment = decodeMoment(orderMoment)
	tx.ConfirmMoment = decodeMoment(confirmMoment)
	if tx.Amount, err = decodeAmount(amount); err != nil {
		return nil, err
	}
	if cancelled.Valid {
		moment := decodeMoment(cancelled.Int64)
		tx.Cancelled = &moment
		tx.CancelledBy = cancelledBy.String
	}

	return &tx, nil
}
