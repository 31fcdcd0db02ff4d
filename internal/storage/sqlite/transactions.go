package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reparte/backend/internal/errs"
	"github.com/reparte/backend/internal/models"
	"github.com/reparte/backend/internal/storage"
)

// CreateTransaction persists a new expense or refund with its splits.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, group_id, kind, name, amount, category, description, payer_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.GroupID, txn.Kind, txn.Name, txn.Amount,
		txn.Category, txn.Description, txn.PayerID, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	for _, split := range txn.Splits {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO splits (transaction_id, member_id, amount) VALUES (?, ?, ?)",
			txn.ID, split.MemberID, split.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a live transaction of the given kind with its
// live splits.
func (s *SQLiteStore) GetTransaction(ctx context.Context, kind models.TransactionKind, id string) (*models.Transaction, error) {
	txn := &models.Transaction{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, kind, name, amount, category, description, payer_id, created_at
		 FROM transactions WHERE id = ? AND kind = ? AND deleted_at IS NULL`,
		id, kind,
	).Scan(&txn.ID, &txn.GroupID, &txn.Kind, &txn.Name, &txn.Amount,
		&txn.Category, &txn.Description, &txn.PayerID, &txn.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", errs.ErrNotFound, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, amount FROM splits
		 WHERE transaction_id = ? AND deleted_at IS NULL
		 ORDER BY member_id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.Split
		if err := rows.Scan(&split.MemberID, &split.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		txn.Splits = append(txn.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return txn, nil
}

// ListTransactions retrieves all live transactions of the given kind for a
// group, newest first, without splits.
func (s *SQLiteStore) ListTransactions(ctx context.Context, kind models.TransactionKind, groupID string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, kind, name, amount, category, description, payer_id, created_at
		 FROM transactions
		 WHERE group_id = ? AND kind = ? AND deleted_at IS NULL
		 ORDER BY created_at DESC, id`,
		groupID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn := &models.Transaction{}
		if err := rows.Scan(&txn.ID, &txn.GroupID, &txn.Kind, &txn.Name, &txn.Amount,
			&txn.Category, &txn.Description, &txn.PayerID, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

// UpdateTransaction rewrites a live transaction and reconciles its splits.
// Kept members are upserted (a previously soft-deleted split row comes back
// to life); members no longer present have their splits soft-deleted so the
// history remains inspectable.
func (s *SQLiteStore) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE transactions
		 SET name = ?, amount = ?, category = ?, description = ?, payer_id = ?
		 WHERE id = ? AND kind = ? AND deleted_at IS NULL`,
		txn.Name, txn.Amount, txn.Category, txn.Description, txn.PayerID,
		txn.ID, txn.Kind,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if err := requireRow(res, string(txn.Kind)); err != nil {
		return err
	}

	keptIDs := make([]string, 0, len(txn.Splits))
	for _, split := range txn.Splits {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO splits (transaction_id, member_id, amount)
			 VALUES (?, ?, ?)
			 ON CONFLICT (transaction_id, member_id)
			 DO UPDATE SET amount = excluded.amount, deleted_at = NULL`,
			txn.ID, split.MemberID, split.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert split: %w", err)
		}
		keptIDs = append(keptIDs, split.MemberID)
	}

	if len(keptIDs) > 0 {
		query := `UPDATE splits SET deleted_at = ?
		 WHERE transaction_id = ? AND deleted_at IS NULL
		   AND member_id NOT IN (?` + strings.Repeat(", ?", len(keptIDs)-1) + `)`
		args := make([]interface{}, 0, len(keptIDs)+2)
		args = append(args, time.Now().Unix(), txn.ID)
		for _, id := range keptIDs {
			args = append(args, id)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to retire removed splits: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteTransaction soft-deletes a transaction and all of its splits.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, kind models.TransactionKind, id string) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE splits SET deleted_at = ? WHERE transaction_id = ? AND deleted_at IS NULL",
		now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE transactions SET deleted_at = ? WHERE id = ? AND kind = ? AND deleted_at IS NULL",
		now, id, kind,
	)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if err := requireRow(res, string(kind)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// MemberLedgerSums aggregates a member's paid and owed totals across live
// expenses, refunds and splits.
func (s *SQLiteStore) MemberLedgerSums(ctx context.Context, memberID string) (storage.LedgerSums, error) {
	var sums storage.LedgerSums
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE((SELECT SUM(amount) FROM transactions
		             WHERE payer_id = ? AND kind = 'expense' AND deleted_at IS NULL), 0),
		   COALESCE((SELECT SUM(s.amount) FROM splits s
		             JOIN transactions t ON s.transaction_id = t.id
		             WHERE s.member_id = ? AND t.kind = 'expense'
		               AND s.deleted_at IS NULL AND t.deleted_at IS NULL), 0),
		   COALESCE((SELECT SUM(amount) FROM transactions
		             WHERE payer_id = ? AND kind = 'refund' AND deleted_at IS NULL), 0),
		   COALESCE((SELECT SUM(s.amount) FROM splits s
		             JOIN transactions t ON s.transaction_id = t.id
		             WHERE s.member_id = ? AND t.kind = 'refund'
		               AND s.deleted_at IS NULL AND t.deleted_at IS NULL), 0)`,
		memberID, memberID, memberID, memberID,
	).Scan(&sums.PaidOnExpenses, &sums.OwedOnExpenses, &sums.PaidOnRefunds, &sums.ReceivedOnRefunds)
	if err != nil {
		return storage.LedgerSums{}, fmt.Errorf("failed to aggregate ledger sums: %w", err)
	}

	return sums, nil
}
