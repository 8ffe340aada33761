package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mealtab/kitty/internal/models"
)

// CreateDiningList persists a dining-list read model row.
func (s *SQLiteStore) CreateDiningList(ctx context.Context, list *models.DiningList) error {
	if list.ID == "" {
		list.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO dining_lists (id, name, date, kitchen_cost, collection_account) VALUES (?, ?, ?, ?, ?)",
		list.ID,
		list.Name,
		encodeMoment(list.Date),
		encodeAmount(list.KitchenCost),
		list.CollectionAccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to create dining list: %w", err)
	}

	return nil
}

// GetDiningList retrieves a dining list by its ID.
func (s *SQLiteStore) GetDiningList(ctx context.Context, listID string) (*models.DiningList, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, date, kitchen_cost, collection_account FROM dining_lists WHERE id = ?",
		listID,
	)
	return scanDiningList(row)
}

// AddDiningEntry persists a participation entry. The diner must hold a
// user account: an association is never on the debited side of a dining
// charge.
func (s *SQLiteStore) AddDiningEntry(ctx context.Context, entry *models.DiningEntry) error {
	account, err := s.GetAccount(ctx, entry.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account %s", models.ErrNotFound, entry.AccountID)
	}
	if !account.IsUser() {
		return fmt.Errorf("%w: dining charges can only debit user accounts", models.ErrInvalidTransaction)
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO dining_entries (id, list_id, account_id, cost, created_at, transaction_id) VALUES (?, ?, ?, ?, ?, NULL)",
		entry.ID,
		entry.ListID,
		entry.AccountID,
		encodeAmount(entry.Cost),
		encodeMoment(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add dining entry: %w", err)
	}

	return nil
}

// TrackDiningList marks the list as having unresolved charges.
func (s *SQLiteStore) TrackDiningList(ctx context.Context, listID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO dining_trackers (list_id) VALUES (?) ON CONFLICT DO NOTHING",
		listID,
	)
	if err != nil {
		return fmt.Errorf("failed to track dining list: %w", err)
	}
	return nil
}

// HasDiningTracker reports whether the list is tracked.
func (s *SQLiteStore) HasDiningTracker(ctx context.Context, listID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM dining_trackers WHERE list_id = ?",
		listID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dining tracker: %w", err)
	}
	return true, nil
}

// ListTrackedListsBefore retrieves the IDs of tracked dining lists whose
// date is at or before the cutoff.
func (s *SQLiteStore) ListTrackedListsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.list_id
		 FROM dining_trackers t
		 JOIN dining_lists l ON l.id = t.list_id
		 WHERE l.date <= ?
		 ORDER BY l.date, t.list_id`,
		encodeMoment(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked dining lists: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tracked list: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked lists: %w", err)
	}

	return ids, nil
}

// ListUnresolvedEntries retrieves the list's entries that have not yet
// produced a fixed transaction, oldest sign-up first.
func (s *SQLiteStore) ListUnresolvedEntries(ctx context.Context, listID string) ([]*models.DiningEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, list_id, account_id, cost, created_at, transaction_id FROM dining_entries WHERE list_id = ? AND transaction_id IS NULL ORDER BY created_at, id",
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dining entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.DiningEntry
	for rows.Next() {
		entry, err := scanDiningEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dining entries: %w", err)
	}

	return entries, nil
}

// FinalizeDiningList converts every unresolved entry of the tracked list
// into a fixed transaction and deletes the tracker, all in one SQL
// transaction. Deleting the tracker first, guarded by its rows-affected
// count, is the compare-and-swap: a concurrent finalizer finds no
// tracker left and migrates nothing.
func (s *SQLiteStore) FinalizeDiningList(ctx context.Context, listID string, confirm time.Time) ([]*models.FixedTransaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM dining_trackers WHERE list_id = ?", listID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete dining tracker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to delete dining tracker: %w", err)
	}
	if n == 0 {
		return nil, nil // Not tracked, or a concurrent finalizer won
	}

	list, err := scanDiningList(tx.QueryRowContext(ctx,
		"SELECT id, name, date, kitchen_cost, collection_account FROM dining_lists WHERE id = ?",
		listID,
	))
	if err != nil {
		return nil, err
	}
	if list == nil {
		// A tracker without its list means the stores disagree.
		return nil, fmt.Errorf("%w: tracker references missing dining list %s", models.ErrConsistencyViolation, listID)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT id, list_id, account_id, cost, created_at, transaction_id FROM dining_entries WHERE list_id = ? AND transaction_id IS NULL ORDER BY created_at, id",
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dining entries: %w", err)
	}
	var entries []*models.DiningEntry
	for rows.Next() {
		entry, err := scanDiningEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dining entries: %w", err)
	}

	// Non-nil even when the list had no unresolved entries: nil is
	// reserved for the not-tracked case.
	fixed := []*models.FixedTransaction{}
	for _, entry := range entries {
		ft := &models.FixedTransaction{
			SourceID:      entry.AccountID,
			TargetID:      list.CollectionAccountID,
			Amount:        entry.Cost,
			OrderMoment:   entry.CreatedAt,
			ConfirmMoment: confirm,
			Description:   diningChargeDescription(list),
		}
		prepareFixed(ft)

		_, err = tx.ExecContext(ctx,
			"INSERT INTO fixed_transactions ("+fixedColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)",
			fixedInsertArgs(ft)...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert fixed transaction: %w", err)
		}

		// Entries are kept with a back-reference so a later entry
		// removal can cancel the charge it produced.
		_, err = tx.ExecContext(ctx,
			"UPDATE dining_entries SET transaction_id = ? WHERE id = ?",
			ft.ID, entry.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to link dining entry: %w", err)
		}

		fixed = append(fixed, ft)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit finalization: %w", err)
	}

	return fixed, nil
}

// diningChargeDescription labels the fixed transactions a list produces.
func diningChargeDescription(list *models.DiningList) string {
	if list.Name == "" {
		return fmt.Sprintf("Kitchen cost for dining list of %s", list.Date.Format("2006-01-02"))
	}
	return fmt.Sprintf("Kitchen cost for %s", list.Name)
}

func scanDiningList(row rowScanner) (*models.DiningList, error) {
	var (
		list models.DiningList
		date int64
		cost string
	)
	err := row.Scan(&list.ID, &list.Name, &date, &cost, &list.CollectionAccountID)
	if err == sql.ErrNoRows {
		return nil, nil // List not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dining list: %w", err)
	}

	list.Date = decodeMoment(date)
	if list.KitchenCost, err = decodeAmount(cost); err != nil {
		return nil, err
	}

	return &list, nil
}

func scanDiningEntry(row rowScanner) (*models.DiningEntry, error) {
	var (
		entry         models.DiningEntry
		cost          string
		createdAt     int64
		transactionID sql.NullString
	)
	err := row.Scan(&entry.ID, &entry.ListID, &entry.AccountID, &cost, &createdAt, &transactionID)
	if err == sql.ErrNoRows {
		return nil, nil // Entry not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dining entry: %w", err)
	}

	entry.CreatedAt = decodeMoment(createdAt)
	entry.TransactionID = transactionID.String
	if entry.Cost, err = decodeAmount(cost); err != nil {
		return nil, err
	}

	return &entry, nil
}
