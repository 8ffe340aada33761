package models

import "time"

// SpecialKitchenCost is the tag of the special account that collects
// kitchen-cost payments from diners.
const SpecialKitchenCost = "kitchen_cost"

// EntityKind discriminates the holder of an account or the party on one
// side of a transaction.
type EntityKind int

const (
	// EntityNone means no party. Only valid as the source of an
	// external deposit.
	EntityNone EntityKind = iota

	// EntityUser references a user by ID.
	EntityUser

	// EntityAssociation references an association by ID.
	EntityAssociation

	// EntitySpecial references a special-purpose ledger account by tag.
	EntitySpecial
)

// EntityRef identifies the holder of an account: a user, an association,
// or a special ledger purpose. The zero value is "none", which is only
// valid as the source of an external deposit. A ref can name at most one
// entity, so a transaction side can never carry both a user and an
// association.
type EntityRef struct {
	Kind EntityKind

	// ID is the user or association ID, or the special account tag.
	// Empty exactly when Kind is EntityNone.
	ID string
}

// UserRef returns a reference to the account held by the given user.
func UserRef(userID string) EntityRef {
	return EntityRef{Kind: EntityUser, ID: userID}
}

// AssociationRef returns a reference to the account held by the given
// association.
func AssociationRef(associationID string) EntityRef {
	return EntityRef{Kind: EntityAssociation, ID: associationID}
}

// SpecialRef returns a reference to the special account with the given
// tag, e.g. SpecialKitchenCost.
func SpecialRef(tag string) EntityRef {
	return EntityRef{Kind: EntitySpecial, ID: tag}
}

// IsNone reports whether the reference names no entity.
func (r EntityRef) IsNone() bool {
	return r.Kind == EntityNone
}

// Valid reports whether the reference is well formed: none with an empty
// ID, or a known kind with a non-empty ID.
func (r EntityRef) Valid() bool {
	switch r.Kind {
	case EntityNone:
		return r.ID == ""
	case EntityUser, EntityAssociation, EntitySpecial:
		return r.ID != ""
	default:
		return false
	}
}

// Account is a money account that can appear as a transaction source or
// target. Exactly one of UserID, AssociationID and Special is set.
// An account stores no balance; balances are derived by summing the
// transactions that touch the account.
type Account struct {
	// ID is the unique identifier for the account (UUID format).
	ID string

	// UserID is set when the account is held by a user.
	UserID string

	// AssociationID is set when the account is held by an association.
	AssociationID string

	// Special is set for ledger-internal accounts, e.g. "kitchen_cost".
	Special string

	// CreatedAt is the moment the account was provisioned.
	CreatedAt time.Time
}

// Ref returns the entity reference for the account holder.
func (a *Account) Ref() EntityRef {
	switch {
	case a.UserID != "":
		return UserRef(a.UserID)
	case a.AssociationID != "":
		return AssociationRef(a.AssociationID)
	default:
		return SpecialRef(a.Special)
	}
}

// IsUser reports whether the account is held by a user.
func (a *Account) IsUser() bool {
	return a.UserID != ""
}
