package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mealtab/kitty/internal/metrics"
	"github.com/mealtab/kitty/internal/models"
)

// RecordTransfer writes a fixed transaction directly to the ledger. The
// source may be none for money entering the ledger from outside; the
// target is required. Fails with ErrInvalidTransaction on an equal
// source and target or a malformed amount.
func (s *Service) RecordTransfer(ctx context.Context, source, target models.EntityRef, amount decimal.Decimal, description, createdBy string) (*models.FixedTransaction, error) {
	if !validAmount(amount) {
		return nil, fmt.Errorf("%w: amount must be a positive two-decimal value of at least 0.01", models.ErrInvalidTransaction)
	}

	sourceID, targetID, err := s.resolveEndpoints(ctx, source, target)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tx := &models.FixedTransaction{
		SourceID:      sourceID,
		TargetID:      targetID,
		Amount:        amount,
		OrderMoment:   now,
		ConfirmMoment: now,
		Description:   description,
		CreatedBy:     createdBy,
	}
	if err := s.store.CreateFixedTransaction(ctx, tx); err != nil {
		slog.Error("RecordTransfer failed", "error", err)
		return nil, err
	}

	metrics.TransfersRecorded.Inc()
	slog.Info("Transfer recorded",
		"transaction_id", tx.ID,
		"amount", amount.StringFixed(2),
		"created_by", createdBy,
	)

	return tx, nil
}

// CancelTransaction soft-cancels a fixed transaction: the row keeps its
// amount and audit fields but no longer counts towards balances. A
// second cancellation fails with ErrAlreadyCancelled; of two concurrent
// attempts exactly one succeeds.
func (s *Service) CancelTransaction(ctx context.Context, txID, byUserID string) (*models.FixedTransaction, error) {
	if err := s.store.CancelFixedTransaction(ctx, txID, byUserID, s.now()); err != nil {
		return nil, err
	}

	metrics.TransactionsCancelled.Inc()
	slog.Info("Transaction cancelled", "transaction_id", txID, "cancelled_by", byUserID)

	tx, err := s.store.GetFixedTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		// We just cancelled it; fixed transactions are never deleted.
		return nil, fmt.Errorf("%w: cancelled transaction %s disappeared", models.ErrConsistencyViolation, txID)
	}
	return tx, nil
}
