// Package accounts defines the credential store contract and its MongoDB,
// PostgreSQL and in-memory implementations.
//
// Every implementation reports a missing account as common.ErrorNotFound and
// a username/email collision as a *DuplicateError wrapping
// common.ErrorAlreadyExists. Uniqueness is enforced by the store itself
// (unique indexes, UNIQUE constraints, or a lock in memory).
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// Filter selects accounts by username or email (either one matching is
// enough). ExcludeID, when set, leaves that account out.
type Filter struct {
	Username  string
	Email     string
	ExcludeID string
}

func (f Filter) empty() bool {
	return f.Username == "" && f.Email == ""
}

type Repository interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	Exists(ctx context.Context, f Filter) (bool, error)
	// Insert stores a new account and returns it with ID and timestamps set.
	Insert(ctx context.Context, a *models.Account) (*models.Account, error)
	// Update applies the non-nil fields of u and returns the stored result.
	Update(ctx context.Context, id string, u models.AccountUpdate) (*models.Account, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id string) error
	// FindByRefreshToken returns the account only if its stored refresh
	// token equals token exactly.
	FindByRefreshToken(ctx context.Context, id, token string) (*models.Account, error)
	Count(ctx context.Context) (int64, error)
}

// DuplicateError reports which unique field collided.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " " + common.ErrorAlreadyExists.Error()
}

func (e *DuplicateError) Unwrap() error {
	return common.ErrorAlreadyExists
}
