package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealtab/kitty/internal/models"
)

// entityRefJSON is the wire form of a transaction endpoint: at most one
// of the fields is set; all empty means "none" (an external source).
type entityRefJSON struct {
	User        string `json:"user,omitempty"`
	Association string `json:"association,omitempty"`
	Special     string `json:"special,omitempty"`
}

func (e entityRefJSON) ref() models.EntityRef {
	switch {
	case e.User != "":
		return models.UserRef(e.User)
	case e.Association != "":
		return models.AssociationRef(e.Association)
	case e.Special != "":
		return models.SpecialRef(e.Special)
	default:
		return models.EntityRef{}
	}
}

func refJSON(ref models.EntityRef) entityRefJSON {
	switch ref.Kind {
	case models.EntityUser:
		return entityRefJSON{User: ref.ID}
	case models.EntityAssociation:
		return entityRefJSON{Association: ref.ID}
	case models.EntitySpecial:
		return entityRefJSON{Special: ref.ID}
	default:
		return entityRefJSON{}
	}
}

type transferRequest struct {
	Source      entityRefJSON `json:"source"`
	Target      entityRefJSON `json:"target"`
	Amount      string        `json:"amount"`
	Description string        `json:"description"`
	CreatedBy   string        `json:"created_by"`
}

type pendingRequest struct {
	Source        entityRefJSON `json:"source"`
	Target        entityRefJSON `json:"target"`
	Amount        string        `json:"amount"`
	Description   string        `json:"description"`
	CreatedBy     string        `json:"created_by"`
	OrderMoment   *time.Time    `json:"order_moment,omitempty"`
	ConfirmMoment *time.Time    `json:"confirm_moment,omitempty"`
}

type balanceResponse struct {
	Balance      string `json:"balance"`
	BalanceFixed string `json:"balance_fixed"`
}

type userBalanceJSON struct {
	UserID       string `json:"user_id"`
	Balance      string `json:"balance"`
	BalanceFixed string `json:"balance_fixed"`
}

type accountResponse struct {
	ID     string        `json:"id"`
	Holder entityRefJSON `json:"holder"`
}

type fixedTransactionJSON struct {
	ID            string     `json:"id"`
	SourceID      string     `json:"source_id,omitempty"`
	TargetID      string     `json:"target_id"`
	Amount        string     `json:"amount"`
	OrderMoment   time.Time  `json:"order_moment"`
	ConfirmMoment time.Time  `json:"confirm_moment"`
	Description   string     `json:"description"`
	CreatedBy     string     `json:"created_by,omitempty"`
	Cancelled     *time.Time `json:"cancelled,omitempty"`
	CancelledBy   string     `json:"cancelled_by,omitempty"`
}

type pendingTransactionJSON struct {
	ID            string    `json:"id"`
	SourceID      string    `json:"source_id,omitempty"`
	TargetID      string    `json:"target_id"`
	Amount        string    `json:"amount"`
	OrderMoment   time.Time `json:"order_moment"`
	ConfirmMoment time.Time `json:"confirm_moment"`
	Description   string    `json:"description"`
	CreatedBy     string    `json:"created_by,omitempty"`
}

type diningChargeJSON struct {
	EntryID     string    `json:"entry_id"`
	ListID      string    `json:"list_id"`
	SourceID    string    `json:"source_id"`
	TargetID    string    `json:"target_id"`
	Amount      string    `json:"amount"`
	Moment      time.Time `json:"moment"`
	Description string    `json:"description"`
}

func accountJSON(a *models.Account) accountResponse {
	return accountResponse{ID: a.ID, Holder: refJSON(a.Ref())}
}

func fixedJSON(t *models.FixedTransaction) fixedTransactionJSON {
	return fixedTransactionJSON{
		ID:            t.ID,
		SourceID:      t.SourceID,
		TargetID:      t.TargetID,
		Amount:        t.Amount.StringFixed(2),
		OrderMoment:   t.OrderMoment,
		ConfirmMoment: t.ConfirmMoment,
		Description:   t.Description,
		CreatedBy:     t.CreatedBy,
		Cancelled:     t.Cancelled,
		CancelledBy:   t.CancelledBy,
	}
}

func fixedListJSON(txs []*models.FixedTransaction) []fixedTransactionJSON {
	rows := make([]fixedTransactionJSON, len(txs))
	for i, t := range txs {
		rows[i] = fixedJSON(t)
	}
	return rows
}

func pendingJSON(t *models.PendingTransaction) pendingTransactionJSON {
	return pendingTransactionJSON{
		ID:            t.ID,
		SourceID:      t.SourceID,
		TargetID:      t.TargetID,
		Amount:        t.Amount.StringFixed(2),
		OrderMoment:   t.OrderMoment,
		ConfirmMoment: t.ConfirmMoment,
		Description:   t.Description,
		CreatedBy:     t.CreatedBy,
	}
}

// refFromQuery reads a user=, association= or special= query parameter.
func refFromQuery(r *http.Request) (models.EntityRef, error) {
	q := r.URL.Query()
	ref := entityRefJSON{
		User:        q.Get("user"),
		Association: q.Get("association"),
		Special:     q.Get("special"),
	}.ref()
	if ref.IsNone() {
		return ref, fmt.Errorf("%w: query needs one of user, association or special", models.ErrInvalidTransaction)
	}
	return ref, nil
}

// decodeBody parses a JSON request body.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", models.ErrInvalidTransaction, err)
	}
	return nil
}

// decodeOptionalBody parses a JSON request body, treating an empty body
// as all-defaults.
func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: malformed request body: %v", models.ErrInvalidTransaction, err)
}

// parseAmount parses a wire amount string into an exact decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: malformed amount %q", models.ErrInvalidTransaction, s)
	}
	return d, nil
}
