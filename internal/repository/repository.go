// Package repository declares the storage contracts the services depend on.
package repository

import (
	"context"

	"github.com/devtrack/devtrack-server/internal/model"
)

// UserRepository stores accounts.
//
// Lookups return apperror.ErrNotFound when nothing matches; writes that
// violate the e-mail or GitHub ID uniqueness return apperror.ErrConflict.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)

	// UpsertGitHub resolves a GitHub login to one account: the row with the
	// same GitHub ID, else (only when matchEmail is set) the row with the same
	// e-mail, which gets linked, else a new row. user is updated in place
	// with the stored ID.
	UpsertGitHub(ctx context.Context, user *model.User, matchEmail bool) error

	Update(ctx context.Context, user *model.User) error
	ClearAccessToken(ctx context.Context, id string) error
}

// TokenSealer encrypts access tokens before they reach storage.
// *auth.TokenSealer implements it.
type TokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}
