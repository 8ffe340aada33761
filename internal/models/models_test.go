package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEntityRefValid(t *testing.T) {
	cases := []struct {
		name string
		ref  EntityRef
		want bool
	}{
		{"zero value is a valid none", EntityRef{}, true},
		{"none with an ID", EntityRef{Kind: EntityNone, ID: "x"}, false},
		{"user with ID", UserRef("alice"), true},
		{"user without ID", EntityRef{Kind: EntityUser}, false},
		{"association with ID", AssociationRef("knights"), true},
		{"special with tag", SpecialRef(SpecialKitchenCost), true},
		{"unknown kind", EntityRef{Kind: EntityKind(42), ID: "x"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ref.Valid(); got != tc.want {
				t.Errorf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAccountRefRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		account Account
		want    EntityRef
	}{
		{"user account", Account{UserID: "alice"}, UserRef("alice")},
		{"association account", Account{AssociationID: "knights"}, AssociationRef("knights")},
		{"special account", Account{Special: SpecialKitchenCost}, SpecialRef(SpecialKitchenCost)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.account.Ref(); got != tc.want {
				t.Errorf("Ref() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestPendingExpiry(t *testing.T) {
	expiry := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	tx := &PendingTransaction{ConfirmMoment: expiry}

	if tx.Expired(expiry.Add(-time.Second)) {
		t.Error("expired before the confirm moment")
	}
	if !tx.Expired(expiry) {
		t.Error("not expired at the confirm moment")
	}
	if !tx.Expired(expiry.Add(time.Second)) {
		t.Error("not expired after the confirm moment")
	}
}

func TestFixedForm(t *testing.T) {
	order := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	confirm := order.Add(48 * time.Hour)

	pending := &PendingTransaction{
		ID:            "p1",
		SourceID:      "acc-src",
		TargetID:      "acc-dst",
		Amount:        decimal.RequireFromString("3.00"),
		OrderMoment:   order,
		ConfirmMoment: order.Add(24 * time.Hour),
		Description:   "kitchen cost",
		CreatedBy:     "alice",
	}

	fixed := pending.FixedForm(confirm)
	if fixed.ID != "" {
		t.Error("fixed form must not reuse the pending ID")
	}
	if fixed.SourceID != pending.SourceID || fixed.TargetID != pending.TargetID {
		t.Error("endpoints not carried over")
	}
	if !fixed.Amount.Equal(pending.Amount) {
		t.Errorf("amount = %s, want %s", fixed.Amount, pending.Amount)
	}
	if !fixed.OrderMoment.Equal(order) {
		t.Error("order moment not preserved")
	}
	if !fixed.ConfirmMoment.Equal(confirm) {
		t.Error("confirm moment not restamped")
	}
	if fixed.IsCancelled() {
		t.Error("fresh fixed form is cancelled")
	}
}
