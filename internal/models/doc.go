// Package models defines the core domain models for the Kitty credit ledger.
//
// # Accounts
//
// Every user and every association holds exactly one Account. A small
// number of special accounts exist for ledger-internal purposes, most
// notably the "kitchen_cost" account that collects dining charges.
// Balances are always derived from transactions, never stored.
//
// # Transaction kinds
//
// Money movement is modelled as a closed set of three transaction kinds
// that combine into one balance per account:
//   - FixedTransaction: permanent, audit-grade ledger entry. Cancellable
//     (soft), never deleted.
//   - PendingTransaction: provisional transfer with an expiry, after
//     which it is atomically migrated into the fixed ledger.
//   - DiningCharge: provisional kitchen-cost charge computed from dining
//     participation entries; not stored, finalized when the dining list
//     closes.
//
// # Design principles
//
//  1. **Sum-type endpoints**: each transaction side names at most one
//     entity via EntityRef, making "both a user and an association on
//     one side" unrepresentable.
//  2. **Exact money**: amounts are shopspring decimals with two decimal
//     places; floating point never touches a balance.
//  3. **Derived balances**: balance projections are recomputed from the
//     three kinds on every read, never independently mutated.
package models
