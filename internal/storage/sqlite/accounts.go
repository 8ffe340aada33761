package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mealtab/kitty/internal/models"
)

// CreateAccount persists a new account. The schema's UNIQUE constraints
// reject a second account for the same holder.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (id, user_id, association_id, special, created_at) VALUES (?, ?, ?, ?, ?)",
		account.ID,
		nullString(account.UserID),
		nullString(account.AssociationID),
		nullString(account.Special),
		encodeMoment(account.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by its ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, association_id, special, created_at FROM accounts WHERE id = ?",
		accountID,
	)
	return scanAccount(row)
}

// FindAccount retrieves the account held by the referenced entity.
func (s *SQLiteStore) FindAccount(ctx context.Context, ref models.EntityRef) (*models.Account, error) {
	var column string
	switch ref.Kind {
	case models.EntityUser:
		column = "user_id"
	case models.EntityAssociation:
		column = "association_id"
	case models.EntitySpecial:
		column = "special"
	default:
		return nil, fmt.Errorf("%w: account lookup needs a user, association or special reference", models.ErrInvalidTransaction)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, association_id, special, created_at FROM accounts WHERE "+column+" = ?",
		ref.ID,
	)
	return scanAccount(row)
}

// ListUserAccounts retrieves every user-held account.
func (s *SQLiteStore) ListUserAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, association_id, special, created_at FROM accounts WHERE user_id IS NOT NULL ORDER BY user_id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account     models.Account
		userID      sql.NullString
		association sql.NullString
		special     sql.NullString
		createdAt   int64
	)
	err := row.Scan(&account.ID, &userID, &association, &special, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil // Account not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.UserID = userID.String
	account.AssociationID = association.String
	account.Special = special.String
	account.CreatedAt = decodeMoment(createdAt)

	return &account, nil
}
