package comment

import (
	"context"

	"github.com/mkrupp/webgallery/internal/domain"
)

// Repository persists comments.
type Repository interface {
	// CreateComment inserts a new comment. Returns domain.ErrConflict on a duplicate id.
	CreateComment(ctx context.Context, comment domain.Comment) error

	// GetComment returns the comment or domain.ErrCommentNotFound.
	GetComment(ctx context.Context, id string) (*domain.Comment, error)

	// ListComments returns up to limit comments of an image, newest first, skipping offset.
	ListComments(ctx context.Context, imageID string, offset, limit int) ([]domain.Comment, error)

	// DeleteComment removes the comment or returns domain.ErrCommentNotFound.
	DeleteComment(ctx context.Context, id string) error

	// DeleteCommentsForImage removes every comment of an image and returns how many there were.
	DeleteCommentsForImage(ctx context.Context, imageID string) (int64, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)
