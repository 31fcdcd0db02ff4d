package sqlite

import (
	"context"
	"fmt"

	"github.com/reparte/backend/internal/models"
)

// UpsertBalance writes the derived balance row for one member. The row is
// fully replaced: balances carry no history of their own.
func (s *SQLiteStore) UpsertBalance(ctx context.Context, balance *models.Balance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (member_id, group_id, total_paid, total_owed, net_balance)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (member_id)
		 DO UPDATE SET total_paid  = excluded.total_paid,
		               total_owed  = excluded.total_owed,
		               net_balance = excluded.net_balance`,
		balance.MemberID, balance.GroupID, balance.TotalPaid, balance.TotalOwed, balance.NetBalance,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}

	return nil
}

// ListBalances retrieves the balances of every live member of a group,
// joined with member names, ordered by net balance descending.
func (s *SQLiteStore) ListBalances(ctx context.Context, groupID string) ([]*models.Balance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.group_id, m.name, b.total_paid, b.total_owed, b.net_balance
		 FROM members m
		 JOIN balances b ON m.id = b.member_id
		 WHERE m.group_id = ? AND m.deleted_at IS NULL
		 ORDER BY b.net_balance DESC, m.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []*models.Balance
	for rows.Next() {
		balance := &models.Balance{}
		if err := rows.Scan(&balance.MemberID, &balance.GroupID, &balance.MemberName,
			&balance.TotalPaid, &balance.TotalOwed, &balance.NetBalance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, balance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}

	return balances, nil
}
