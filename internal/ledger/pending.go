package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealtab/kitty/internal/metrics"
	"github.com/mealtab/kitty/internal/models"
)

// PendingParams describes a pending transaction to open. OrderMoment
// defaults to now and ConfirmMoment to OrderMoment plus the configured
// pending duration.
type PendingParams struct {
	Source        models.EntityRef
	Target        models.EntityRef
	Amount        decimal.Decimal
	Description   string
	CreatedBy     string
	OrderMoment   time.Time
	ConfirmMoment time.Time
}

// OpenPending creates a provisional transaction. When the paying side is
// a user, the user's total balance after the charge is re-derived and
// the call fails with ErrBalanceTooLow if it would drop below the
// configured minimum.
func (s *Service) OpenPending(ctx context.Context, p PendingParams) (*models.PendingTransaction, error) {
	if !validAmount(p.Amount) {
		return nil, fmt.Errorf("%w: amount must be a positive two-decimal value of at least 0.01", models.ErrInvalidTransaction)
	}

	sourceID, targetID, err := s.resolveEndpoints(ctx, p.Source, p.Target)
	if err != nil {
		return nil, err
	}

	if p.Source.Kind == models.EntityUser {
		if err := s.checkBalanceFloor(ctx, p.Source, p.Amount); err != nil {
			return nil, err
		}
	}

	if p.OrderMoment.IsZero() {
		p.OrderMoment = s.now()
	}
	if p.ConfirmMoment.IsZero() {
		p.ConfirmMoment = p.OrderMoment.Add(s.cfg.PendingDuration)
	}

	tx := &models.PendingTransaction{
		SourceID:      sourceID,
		TargetID:      targetID,
		Amount:        p.Amount,
		OrderMoment:   p.OrderMoment,
		ConfirmMoment: p.ConfirmMoment,
		Description:   p.Description,
		CreatedBy:     p.CreatedBy,
	}
	if err := s.store.CreatePendingTransaction(ctx, tx); err != nil {
		slog.Error("OpenPending failed", "error", err)
		return nil, err
	}

	metrics.PendingOpened.Inc()
	slog.Info("Pending transaction opened",
		"transaction_id", tx.ID,
		"amount", p.Amount.StringFixed(2),
		"expires", tx.ConfirmMoment,
	)

	return tx, nil
}

// UpdatePending changes a pending transaction's amount and description.
// The balance floor is checked against the amount delta only: the old
// amount is already reflected in the current balance, so re-checking the
// full amount would double-count it.
func (s *Service) UpdatePending(ctx context.Context, txID string, amount decimal.Decimal, description string) (*models.PendingTransaction, error) {
	if !validAmount(amount) {
		return nil, fmt.Errorf("%w: amount must be a positive two-decimal value of at least 0.01", models.ErrInvalidTransaction)
	}

	tx, err := s.store.GetPendingTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: pending transaction %s", models.ErrNotFound, txID)
	}

	if tx.SourceID != "" {
		account, err := s.store.GetAccount(ctx, tx.SourceID)
		if err != nil {
			return nil, err
		}
		if account != nil && account.IsUser() {
			delta := amount.Sub(tx.Amount)
			if err := s.checkBalanceFloor(ctx, account.Ref(), delta); err != nil {
				return nil, err
			}
		}
	}

	tx.Amount = amount
	tx.Description = description
	if err := s.store.UpdatePendingTransaction(ctx, tx); err != nil {
		slog.Error("UpdatePending failed", "transaction_id", txID, "error", err)
		return nil, err
	}

	slog.Info("Pending transaction updated", "transaction_id", txID, "amount", amount.StringFixed(2))
	return tx, nil
}

// DeletePending removes a pending transaction before its expiry. No
// audit trace is kept; the charge simply never happened.
func (s *Service) DeletePending(ctx context.Context, txID string) error {
	if err := s.store.DeletePendingTransaction(ctx, txID); err != nil {
		return err
	}
	slog.Info("Pending transaction deleted", "transaction_id", txID)
	return nil
}

// FinalizeExpired migrates every pending transaction whose expiry is at
// or before asOf into the fixed ledger, each migration atomic and
// confirm-stamped at the time of migration. A zero asOf means now.
//
// The operation is an idempotent catch-up: already-migrated rows are
// simply absent, so redundant or delayed invocations are harmless and a
// failed run can be retried whole.
func (s *Service) FinalizeExpired(ctx context.Context, asOf time.Time) ([]*models.FixedTransaction, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}

	expired, err := s.store.ListExpiredPending(ctx, asOf)
	if err != nil {
		return nil, err
	}

	finalized := make([]*models.FixedTransaction, 0, len(expired))
	for _, pending := range expired {
		if !pending.Expired(asOf) {
			continue
		}
		fixed, err := s.store.FinalizePending(ctx, pending.ID, s.now())
		if err != nil {
			slog.Error("FinalizeExpired failed", "transaction_id", pending.ID, "error", err)
			return finalized, err
		}
		if fixed == nil {
			continue // A concurrent finalizer got there first
		}
		metrics.PendingFinalized.Inc()
		finalized = append(finalized, fixed)
	}

	if len(finalized) > 0 {
		slog.Info("Expired pending transactions finalized", "count", len(finalized), "as_of", asOf)
	}

	return finalized, nil
}

// checkBalanceFloor fails with ErrBalanceTooLow when charging the user
// the given amount would push their total balance below the configured
// minimum.
func (s *Service) checkBalanceFloor(ctx context.Context, ref models.EntityRef, charge decimal.Decimal) error {
	balance, err := s.BalanceFor(ctx, ref)
	if err != nil {
		return err
	}
	if balance.Sub(charge).Cmp(s.cfg.MinimumBalance) < 0 {
		return fmt.Errorf("%w: balance %s cannot cover %s with floor %s",
			models.ErrBalanceTooLow,
			balance.StringFixed(2),
			charge.StringFixed(2),
			s.cfg.MinimumBalance.StringFixed(2),
		)
	}
	return nil
}
