package image

import (
	"context"

	"github.com/mkrupp/webgallery/internal/domain"
)

// Repository persists image records. The binary content lives in the blob store.
type Repository interface {
	// CreateImage inserts a new record. Returns domain.ErrConflict on a duplicate id.
	CreateImage(ctx context.Context, image domain.Image) error

	// GetImage returns the record or domain.ErrImageNotFound.
	GetImage(ctx context.Context, id string) (*domain.Image, error)

	// ListImages returns matching records newest first; ties keep reverse insertion order.
	ListImages(ctx context.Context, filter domain.ImageFilter) ([]domain.Image, error)

	// DeleteImage removes the record or returns domain.ErrImageNotFound.
	DeleteImage(ctx context.Context, id string) error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)
