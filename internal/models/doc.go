// Package models defines the core domain models for the shared-expense ledger.
//
// # Domain Models
//
//   - Group: a set of members sharing expenses, joined via invite code
//   - Member: a participant in a group, optionally linked to a User
//   - Transaction: an expense or a refund, with per-member splits
//   - Split: one member's share of a transaction
//   - Balance: derived per-member totals, recomputed from the ledger
//   - Settlement: a suggested transfer, computed on demand, never persisted
//
// # Auth Models
//
//   - User: a registered account with a bcrypt password hash
//   - Client: a registered OAuth client allowed to request grants
//   - AccessToken / RefreshToken: opaque bearer token pair with rotation
//
// # Design Principles
//
//  1. Avoid circular references: relationships use ID strings, not pointers
//  2. Balances are derived state: always recomputable from transactions
//  3. Soft deletes preserve history: deleted rows carry a timestamp marker
//     and are filtered out by the storage layer, never loaded into models
package models
