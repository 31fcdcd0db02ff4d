// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/reparte/backend/internal/models"
)

// LedgerSums carries the per-member aggregates the balance recompute reads.
// All sums cover non-deleted rows only.
type LedgerSums struct {
	// PaidOnExpenses is the summed amount of expenses the member paid.
	PaidOnExpenses float64
	// OwedOnExpenses is the summed amount of expense splits assigned to
	// the member.
	OwedOnExpenses float64
	// PaidOnRefunds is the summed amount of refunds the member paid back.
	PaidOnRefunds float64
	// ReceivedOnRefunds is the summed amount of refund splits assigned
	// to the member.
	ReceivedOnRefunds float64
}

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail returns (nil, nil) when no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// ClientStore persists registered OAuth clients.
type ClientStore interface {
	CreateClient(ctx context.Context, client *models.Client) error
	// GetClient returns (nil, nil) when no such client exists.
	GetClient(ctx context.Context, id string) (*models.Client, error)
	CountClients(ctx context.Context) (int, error)
}

// TokenStore persists the access/refresh token pair tables. Token rows are
// append-plus-revoke only: revoked and expired rows are retained for audit.
type TokenStore interface {
	CreateAccessToken(ctx context.Context, token *models.AccessToken) error
	// GetAccessToken returns (nil, nil) when no such token exists.
	GetAccessToken(ctx context.Context, id string) (*models.AccessToken, error)
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// GetRefreshToken returns (nil, nil) when no such token exists.
	GetRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error)
	// GetAccessTokenByRefreshToken resolves the access token a refresh
	// token is paired with, regardless of either token's state.
	GetAccessTokenByRefreshToken(ctx context.Context, refreshTokenID string) (*models.AccessToken, error)
	// GetRefreshTokenByAccessToken resolves the non-revoked refresh
	// token paired with an access token, (nil, nil) when none remains.
	GetRefreshTokenByAccessToken(ctx context.Context, accessTokenID string) (*models.RefreshToken, error)
	// RevokeAccessToken idempotently marks the token revoked.
	RevokeAccessToken(ctx context.Context, id string) error
	// RevokeRefreshToken idempotently marks the token revoked.
	RevokeRefreshToken(ctx context.Context, id string) error
}

// GroupStore persists groups and their members.
type GroupStore interface {
	// CreateGroup persists the group and its creator member atomically.
	CreateGroup(ctx context.Context, group *models.Group, creator *models.Member) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error)
	UpdateGroupName(ctx context.Context, id, name string) error
	// DeleteGroup soft-deletes the group, its members, its transactions
	// and their splits.
	DeleteGroup(ctx context.Context, id string) error

	AddMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, groupID, memberID string) (*models.Member, error)
	// GetMemberByUser returns (nil, nil) when the user has no member row
	// in the group.
	GetMemberByUser(ctx context.Context, groupID, userID string) (*models.Member, error)
	ListMembers(ctx context.Context, groupID string) ([]*models.Member, error)
	RenameMember(ctx context.Context, groupID, memberID, name string) error
	// DeleteMember soft-deletes the member and their splits. Fails with
	// errs.ErrConflict while the member still pays any live transaction.
	DeleteMember(ctx context.Context, groupID, memberID string) error
	// LinkMemberUser claims a member row for a user. Fails with
	// errs.ErrConflict if the user already has a member in the group.
	LinkMemberUser(ctx context.Context, groupID, memberID, userID string) error
}

// LedgerStore persists transactions (expenses and refunds) and their splits.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, kind models.TransactionKind, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, kind models.TransactionKind, groupID string) ([]*models.Transaction, error)
	// UpdateTransaction rewrites the row and reconciles splits: kept
	// members are upserted (undeleting prior soft-deleted rows), removed
	// members' splits are soft-deleted.
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	// DeleteTransaction soft-deletes the transaction and all its splits.
	DeleteTransaction(ctx context.Context, kind models.TransactionKind, id string) error
	// MemberLedgerSums aggregates the member's paid/owed totals across
	// non-deleted rows.
	MemberLedgerSums(ctx context.Context, memberID string) (LedgerSums, error)
}

// BalanceStore persists the derived per-member balance rows.
type BalanceStore interface {
	UpsertBalance(ctx context.Context, balance *models.Balance) error
	// ListBalances returns the group's balances joined with member
	// names, ordered by net balance descending.
	ListBalances(ctx context.Context, groupID string) ([]*models.Balance, error)
}

// Store is the full persistence surface. The sqlite package provides the
// implementation; services depend only on the slice they use.
type Store interface {
	UserStore
	ClientStore
	TokenStore
	GroupStore
	LedgerStore
	BalanceStore

	// Close releases any resources held by the store.
	Close() error
}
