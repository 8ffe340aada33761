package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// The delta computations below never use SQL SUM: amounts are stored as
// strings and summed in Go with exact decimal arithmetic, so a balance
// can never pick up floating-point error.

const (
	sumFixedOneQuery = `
		SELECT source_id, target_id, amount
		FROM fixed_transactions
		WHERE cancelled IS NULL AND (source_id = ? OR target_id = ?)`

	sumFixedAllQuery = `
		SELECT source_id, target_id, amount
		FROM fixed_transactions
		WHERE cancelled IS NULL`

	sumPendingOneQuery = `
		SELECT source_id, target_id, amount
		FROM pending_transactions
		WHERE source_id = ? OR target_id = ?`

	sumPendingAllQuery = `
		SELECT source_id, target_id, amount
		FROM pending_transactions`

	sumDiningOneQuery = `
		SELECT e.account_id, l.collection_account, e.cost
		FROM dining_entries e
		JOIN dining_trackers t ON t.list_id = e.list_id
		JOIN dining_lists l ON l.id = e.list_id
		WHERE e.transaction_id IS NULL AND (e.account_id = ? OR l.collection_account = ?)`

	sumDiningAllQuery = `
		SELECT e.account_id, l.collection_account, e.cost
		FROM dining_entries e
		JOIN dining_trackers t ON t.list_id = e.list_id
		JOIN dining_lists l ON l.id = e.list_id
		WHERE e.transaction_id IS NULL`
)

// SumFixed computes the account's fixed-ledger delta.
func (s *SQLiteStore) SumFixed(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return s.sumOne(ctx, sumFixedOneQuery, accountID)
}

// SumPending computes the account's pending-transaction delta.
func (s *SQLiteStore) SumPending(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return s.sumOne(ctx, sumPendingOneQuery, accountID)
}

// SumDining computes the account's delta over the dining charges of
// tracked lists: each unresolved entry debits the diner and credits the
// list's collection account.
func (s *SQLiteStore) SumDining(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return s.sumOne(ctx, sumDiningOneQuery, accountID)
}

// SumFixedAll computes fixed-ledger deltas for every touched account.
func (s *SQLiteStore) SumFixedAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	return s.sumAll(ctx, sumFixedAllQuery)
}

// SumPendingAll computes pending deltas for every touched account.
func (s *SQLiteStore) SumPendingAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	return s.sumAll(ctx, sumPendingAllQuery)
}

// SumDiningAll computes dining-charge deltas for every touched account.
func (s *SQLiteStore) SumDiningAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	return s.sumAll(ctx, sumDiningAllQuery)
}

// sumOne accumulates a single account's delta from rows of
// (source, target, amount). The query must already restrict rows to
// those touching the account.
func (s *SQLiteStore) sumOne(ctx context.Context, query, accountID string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query, accountID, accountID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to query balance rows: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		source, target, amount, err := scanDeltaRow(rows)
		if err != nil {
			return decimal.Decimal{}, err
		}
		if target == accountID {
			total = total.Add(amount)
		}
		if source == accountID {
			total = total.Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Decimal{}, fmt.Errorf("error iterating balance rows: %w", err)
	}

	return total, nil
}

// sumAll accumulates per-account deltas from rows of
// (source, target, amount).
func (s *SQLiteStore) sumAll(ctx context.Context, query string) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance rows: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		source, target, amount, err := scanDeltaRow(rows)
		if err != nil {
			return nil, err
		}
		totals[target] = totals[target].Add(amount)
		if source != "" {
			totals[source] = totals[source].Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	return totals, nil
}

func scanDeltaRow(rows *sql.Rows) (source, target string, amount decimal.Decimal, err error) {
	var (
		sourceID  sql.NullString
		amountStr string
	)
	if err = rows.Scan(&sourceID, &target, &amountStr); err != nil {
		err = fmt.Errorf("failed to scan balance row: %w", err)
		return
	}
	source = sourceID.String
	amount, err = decodeAmount(amountStr)
	return
}
