package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealtab/kitty/internal/models"
)

// The aggregator enumerates the closed set of transaction kinds
// explicitly: each kind is a pure function from storage state to a
// per-account delta, and the balance is their decimal sum. The storage
// shapes of the three kinds differ, so each delta is computed on its own
// rather than through one polymorphic query.

// BalanceFor computes the entity's total balance: the fixed-ledger delta
// plus both pending kinds. Associations receive no dining contribution;
// they never appear on either side of a dining charge view.
func (s *Service) BalanceFor(ctx context.Context, ref models.EntityRef) (decimal.Decimal, error) {
	account, err := s.ResolveAccount(ctx, ref)
	if err != nil {
		return decimal.Decimal{}, err
	}

	fixed, err := s.store.SumFixed(ctx, account.ID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	pending, err := s.store.SumPending(ctx, account.ID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	total := fixed.Add(pending)
	if ref.Kind != models.EntityAssociation {
		dining, err := s.store.SumDining(ctx, account.ID)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(dining)
	}

	return total.Round(2), nil
}

// FixedBalanceFor computes the entity's balance over the fixed ledger
// only: incoming minus outgoing non-cancelled fixed transactions.
func (s *Service) FixedBalanceFor(ctx context.Context, ref models.EntityRef) (decimal.Decimal, error) {
	account, err := s.ResolveAccount(ctx, ref)
	if err != nil {
		return decimal.Decimal{}, err
	}
	fixed, err := s.store.SumFixed(ctx, account.ID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return fixed.Round(2), nil
}

// Annotate computes the balance projection for every user: total and
// fixed-only balances, recomputed from the three transaction kinds in
// one pass per kind. The results are identical to calling BalanceFor and
// FixedBalanceFor per user.
func (s *Service) Annotate(ctx context.Context) ([]models.UserBalance, error) {
	accounts, err := s.store.ListUserAccounts(ctx)
	if err != nil {
		return nil, err
	}

	fixedAll, err := s.store.SumFixedAll(ctx)
	if err != nil {
		return nil, err
	}
	pendingAll, err := s.store.SumPendingAll(ctx)
	if err != nil {
		return nil, err
	}
	diningAll, err := s.store.SumDiningAll(ctx)
	if err != nil {
		return nil, err
	}

	balances := make([]models.UserBalance, 0, len(accounts))
	for _, account := range accounts {
		fixed := fixedAll[account.ID]
		total := fixed.Add(pendingAll[account.ID]).Add(diningAll[account.ID])
		balances = append(balances, models.UserBalance{
			UserID:       account.UserID,
			Balance:      total.Round(2),
			BalanceFixed: fixed.Round(2),
		})
	}

	return balances, nil
}

// NegativeSince computes the moment the entity's fixed balance last
// turned negative. It walks the fixed ledger newest to oldest, adding
// each non-cancelled transaction's amount back onto the running balance
// until it is non-negative, and returns that transaction's order moment.
// Returns nil when the current fixed balance is not negative. A history
// exhausted while still negative is a broken invariant and fails with
// ErrConsistencyViolation.
func (s *Service) NegativeSince(ctx context.Context, ref models.EntityRef) (*time.Time, error) {
	account, err := s.ResolveAccount(ctx, ref)
	if err != nil {
		return nil, err
	}

	balance, err := s.store.SumFixed(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if balance.Sign() >= 0 {
		return nil, nil
	}

	transactions, err := s.store.ListFixedByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	for _, tx := range transactions {
		if tx.IsCancelled() {
			continue // Cancelled rows never contributed to the balance
		}
		balance = balance.Add(tx.Amount)
		if balance.Sign() >= 0 {
			moment := tx.OrderMoment
			return &moment, nil
		}
	}

	// Amounts are positive, so the walk recovers once enough history is
	// consumed; running out while still negative means the ledger and
	// the sum disagree.
	return nil, fmt.Errorf("%w: fixed history of account %s exhausted while balance still negative", models.ErrConsistencyViolation, account.ID)
}
