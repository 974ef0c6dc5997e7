package mediasvc

import (
	"context"

	"github.com/mkrupp/webgallery/internal/domain"
)

// MediaService stores the binary content of gallery images.
type MediaService interface {
	// CheckUploadConstraints validates an upload by size, filename extension and, when data is
	// non-nil, the magic number of its content. Returns the detected MIME type.
	CheckUploadConstraints(filename string, size int64, data []byte) (string, error)

	// Store validates and persists data under id.
	// Returns the reference to record with the image.
	Store(ctx context.Context, id domain.BlobID, filename string, data []byte) (domain.BlobRef, error)

	// Fetch returns the content behind ref. A positive width returns a variant scaled to that
	// width, rendered once and then served from the cache.
	Fetch(ctx context.Context, ref domain.BlobRef, width int) (domain.Content, error)

	// Delete removes the blob and all of its cached variants.
	// Returns whether the blob existed; a missing blob is not an error.
	Delete(ctx context.Context, id domain.BlobID) (bool, error)

	// MaxSize returns the maximum allowed file size for uploaded media in bytes.
	MaxSize() int64
}
