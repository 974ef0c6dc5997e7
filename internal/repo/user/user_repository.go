package user

import (
	"context"

	"github.com/mkrupp/webgallery/internal/domain"
)

// Repository persists registered users keyed by their exact username.
type Repository interface {
	// CreateUser stores u. A taken username yields domain.ErrUserAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByUsername reports found=false without error when no such user exists.
	GetUserByUsername(ctx context.Context, username string) (u *domain.User, found bool, err error)

	// ListUsernames returns every username in byte order.
	ListUsernames(ctx context.Context) ([]string, error)
}

type RepositoryFactory func() (Repository, error)
