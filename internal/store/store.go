// Package store persists user records.
package store

import (
	"context"
	"errors"

	"github.com/isdelr/ender-accounts/internal/models"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a save would violate username or email
	// uniqueness.
	ErrDuplicate = errors.New("user already exists")
)

// UserStore is the boundary the account service depends on.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	// Save inserts when user.ID is zero and updates otherwise.
	Save(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, user *models.User) error
}
