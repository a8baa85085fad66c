// Package storage abstracts persistence for the ledger so the service layer
// can run against MongoDB in production and an in-memory store in tests.
package storage

import (
	"context"

	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
)

// Store is the persistence contract for the ledger.
//
// UpdateGroup performs an optimistic write: it asserts the Version the caller
// read and increments it, returning a Conflict error when another writer got
// there first. InsertTransaction is the idempotency guard for external
// references: it reports false, without error, when a row with the same
// reference already exists.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SaveRecipientCode(ctx context.Context, userID, key, code string) error

	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	GetGroupByInviteToken(ctx context.Context, token string) (*models.Group, error)
	// FindGroupByContributionReference locates the group owning a
	// contribution with the given external reference (webhook entry path).
	FindGroupByContributionReference(ctx context.Context, ref string) (*models.Group, error)
	ListGroupsByMember(ctx context.Context, userID string) ([]models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error
	DeleteGroup(ctx context.Context, id string) error

	InsertTransaction(ctx context.Context, txn *models.Transaction) (bool, error)
	UpdateTransactionStatus(ctx context.Context, reference, status string) error
	ListTransactionsByGroup(ctx context.Context, groupID string) ([]models.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error)

	Close(ctx context.Context) error
}
