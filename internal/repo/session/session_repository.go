package session

import (
	"context"
	"time"

	"github.com/mkrupp/webgallery/internal/domain"
)

// Repository persists session bindings. Sessions are keyed by a digest of the token;
// the raw token never reaches storage.
type Repository interface {
	// CreateSession stores the binding. Session.Token holds the token digest.
	CreateSession(ctx context.Context, session domain.Session) error

	// ResolveSession returns the binding for digest if it exists, has not expired at now
	// and still refers to an existing user.
	ResolveSession(ctx context.Context, digest string, now time.Time) (*domain.Session, bool, error)

	// ExtendSession moves the expiry of an existing binding.
	ExtendSession(ctx context.Context, digest string, expiresAt time.Time) error

	// DeleteSession removes the binding and reports whether it existed.
	DeleteSession(ctx context.Context, digest string) (bool, error)

	// DeleteExpired removes every binding that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)
