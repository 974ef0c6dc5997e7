package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkrupp/webgallery/internal/domain"
)

// Repository defines the interface for blob storage operations.
// Implementations serialize writers per blob id; distinct ids never block each other.
type Repository interface {
	// Exists reports whether a blob with the given ID exists.
	Exists(ctx context.Context, id domain.BlobID) (bool, error)

	// Store persists a blob, replacing any previous content under the same id.
	Store(ctx context.Context, blob *domain.Blob) error

	// Fetch retrieves a blob by its ID.
	// Returns domain.ErrBlobNotFound if the blob does not exist.
	Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error)

	// Delete removes a blob with the given ID.
	// Returns domain.ErrBlobNotFound if the blob does not exist.
	Delete(ctx context.Context, id domain.BlobID) error

	// DeleteVariants removes every variant derived from id, but not id itself.
	// Having no variants is not an error.
	DeleteVariants(ctx context.Context, id domain.BlobID) error
}

// RepositoryFactory is a function that creates a new Repository instance.
// The name separates independent blob namespaces within one backend.
type RepositoryFactory func(ctx context.Context, name string) (Repository, error)

// Backends.
const (
	BackendFileSystem = "fs"
	BackendS3         = "s3"
)

// Config selects the blob backend and carries its settings.
type Config struct {
	// Backend is "fs" or "s3"
	Backend string `env:"BACKEND" default:"fs"`

	FileSystem FileSystemBlobRepositoryConfig
	S3         S3BlobRepositoryConfig `envPrefix:"S3_"`
}

// NewRepositoryFactory returns the factory for the configured backend.
func NewRepositoryFactory(cfg Config) (RepositoryFactory, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendFileSystem, "":
		return FileSystemBlobRepositoryFactory(cfg.FileSystem), nil
	case BackendS3:
		return S3BlobRepositoryFactory(cfg.S3), nil
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", cfg.Backend)
	}
}

func checkID(id domain.BlobID) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidBlobID, id)
	}

	return nil
}
