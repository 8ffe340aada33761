package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mealtab/kitty/internal/metrics"
	"github.com/mealtab/kitty/internal/models"
)

// DiningCharges returns the provisional kitchen-cost charges of a dining
// list: one read-only charge per unresolved participation entry, present
// exactly while the list is tracked. An untracked list has no charges.
func (s *Service) DiningCharges(ctx context.Context, listID string) ([]models.DiningCharge, error) {
	tracked, err := s.store.HasDiningTracker(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !tracked {
		return nil, nil
	}

	list, err := s.store.GetDiningList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("%w: tracker references missing dining list %s", models.ErrConsistencyViolation, listID)
	}

	entries, err := s.store.ListUnresolvedEntries(ctx, listID)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Kitchen cost for %s", list.Name)
	if list.Name == "" {
		description = fmt.Sprintf("Kitchen cost for dining list of %s", list.Date.Format("2006-01-02"))
	}

	charges := make([]models.DiningCharge, 0, len(entries))
	for _, entry := range entries {
		charges = append(charges, models.DiningCharge{
			EntryID:     entry.ID,
			ListID:      listID,
			SourceID:    entry.AccountID,
			TargetID:    list.CollectionAccountID,
			Amount:      entry.Cost,
			Moment:      entry.CreatedAt,
			Description: description,
		})
	}

	return charges, nil
}

// FinalizeDining converts all of a dining list's unresolved charges into
// fixed transactions and removes its tracker, as one atomic group.
// Calling it on an untracked (already finalized) list is a no-op that
// returns no transactions.
func (s *Service) FinalizeDining(ctx context.Context, listID string) ([]*models.FixedTransaction, error) {
	fixed, err := s.store.FinalizeDiningList(ctx, listID, s.now())
	if err != nil {
		slog.Error("FinalizeDining failed", "list_id", listID, "error", err)
		return nil, err
	}
	if fixed == nil {
		return nil, nil
	}

	metrics.DiningChargesFinalized.Add(float64(len(fixed)))
	slog.Info("Dining list finalized", "list_id", listID, "charges", len(fixed))

	return fixed, nil
}

// FinalizeDiningBefore finalizes every tracked dining list whose date is
// at or before the cutoff. A zero cutoff means now. Like FinalizeExpired
// it is an idempotent catch-up operation.
func (s *Service) FinalizeDiningBefore(ctx context.Context, cutoff time.Time) ([]*models.FixedTransaction, error) {
	if cutoff.IsZero() {
		cutoff = s.now()
	}

	listIDs, err := s.store.ListTrackedListsBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	var finalized []*models.FixedTransaction
	for _, listID := range listIDs {
		fixed, err := s.FinalizeDining(ctx, listID)
		if err != nil {
			return finalized, err
		}
		finalized = append(finalized, fixed...)
	}

	return finalized, nil
}
