// Package ledger implements the credit ledger service: direct transfers
// and soft cancellation, the pending-transaction lifecycle, the dining
// charge bridge, and balance aggregation over the three transaction
// kinds.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealtab/kitty/internal/models"
	"github.com/mealtab/kitty/internal/storage"
)

// Config carries the ledger's tunable policy values.
type Config struct {
	// PendingDuration is the grace period before an unconfirmed pending
	// transaction expires and becomes fixed.
	PendingDuration time.Duration

	// MinimumBalance is the floor a paying user's total balance may not
	// drop below when opening a pending transaction.
	MinimumBalance decimal.Decimal
}

// DefaultConfig returns the stock policy: a two-day pending grace period
// and a zero minimum balance.
func DefaultConfig() Config {
	return Config{
		PendingDuration: 48 * time.Hour,
		MinimumBalance:  decimal.Zero,
	}
}

// Service is the ledger service. All balance reads recompute from
// current storage state; the service keeps no mutable state of its own,
// so methods are safe for concurrent use.
type Service struct {
	store storage.Store
	cfg   Config

	// now is swappable for tests.
	now func() time.Time
}

// New creates a ledger service with the given storage backend and
// configuration.
func New(store storage.Store, cfg Config) *Service {
	if cfg.PendingDuration <= 0 {
		cfg.PendingDuration = DefaultConfig().PendingDuration
	}
	return &Service{
		store: store,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ResolveAccount returns the account held by the referenced entity.
func (s *Service) ResolveAccount(ctx context.Context, ref models.EntityRef) (*models.Account, error) {
	if !ref.Valid() || ref.IsNone() {
		return nil, fmt.Errorf("%w: account reference must name a user, association or special purpose", models.ErrInvalidTransaction)
	}
	account, err := s.store.FindAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: no account for %v %q", models.ErrNotFound, ref.Kind, ref.ID)
	}
	return account, nil
}

// EnsureAccount returns the referenced entity's account, provisioning it
// on first use. The schema's uniqueness constraints keep concurrent
// provisioning down to one account per holder.
func (s *Service) EnsureAccount(ctx context.Context, ref models.EntityRef) (*models.Account, error) {
	if !ref.Valid() || ref.IsNone() {
		return nil, fmt.Errorf("%w: account reference must name a user, association or special purpose", models.ErrInvalidTransaction)
	}
	account, err := s.store.FindAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &models.Account{CreatedAt: s.now()}
	switch ref.Kind {
	case models.EntityUser:
		account.UserID = ref.ID
	case models.EntityAssociation:
		account.AssociationID = ref.ID
	case models.EntitySpecial:
		account.Special = ref.ID
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		// Lost a provisioning race; the holder's account now exists.
		if existing, findErr := s.store.FindAccount(ctx, ref); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return account, nil
}

// validAmount reports whether the amount is at least one cent with at
// most two decimal places.
func validAmount(amount decimal.Decimal) bool {
	if amount.Cmp(models.MinTransactionAmount) < 0 {
		return false
	}
	return amount.Equal(amount.Round(2))
}

// resolveEndpoints resolves the source and target of a transaction.
// The source may be none (an external deposit); the target never is.
// Both sides resolve to distinct accounts.
func (s *Service) resolveEndpoints(ctx context.Context, source, target models.EntityRef) (sourceID, targetID string, err error) {
	if !source.Valid() || !target.Valid() {
		return "", "", fmt.Errorf("%w: malformed endpoint reference", models.ErrInvalidTransaction)
	}
	if target.IsNone() {
		return "", "", fmt.Errorf("%w: transaction needs a target", models.ErrInvalidTransaction)
	}

	targetAccount, err := s.ResolveAccount(ctx, target)
	if err != nil {
		return "", "", err
	}

	if source.IsNone() {
		return "", targetAccount.ID, nil
	}

	sourceAccount, err := s.ResolveAccount(ctx, source)
	if err != nil {
		return "", "", err
	}
	if sourceAccount.ID == targetAccount.ID {
		return "", "", fmt.Errorf("%w: source and target are the same account", models.ErrInvalidTransaction)
	}

	return sourceAccount.ID, targetAccount.ID, nil
}
