package models

// TransactionKind discriminates expenses from refunds. Both share the same
// shape; they differ only in how the balance aggregator signs their amounts.
type TransactionKind string

const (
	// KindExpense is money a payer fronted for the group.
	KindExpense TransactionKind = "expense"
	// KindRefund is money a payer returned to the group, modeled as a
	// reverse expense.
	KindRefund TransactionKind = "refund"
)

// Transaction represents an expense or a refund within a group.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// GroupID is the group this transaction belongs to.
	GroupID string

	// Kind is either KindExpense or KindRefund.
	Kind TransactionKind

	// Name is the human-readable label (e.g., "Groceries").
	Name string

	// Amount is the total amount. The sum of split amounts must equal
	// this within a 0.01 tolerance.
	Amount float64

	// Category is a free-form type tag (e.g., "food", "transport").
	Category string

	// Description is an optional longer note.
	Description string

	// PayerID is the member who paid (expense) or who is paying back
	// (refund). Must belong to GroupID.
	PayerID string

	// Splits is the non-empty set of per-member shares.
	Splits []Split

	// CreatedAt is the Unix timestamp when the transaction was recorded.
	CreatedAt int64
}

// Split is one member's share of a transaction's amount. Unique per
// (transaction, member). Splits for members removed on update are
// soft-deleted rather than dropped, preserving history.
type Split struct {
	// MemberID is the member owing (expense) or receiving (refund) the share.
	MemberID string

	// Amount is the non-negative share.
	Amount float64
}
