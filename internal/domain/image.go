package domain

import (
	"fmt"
	"time"
)

var (
	ErrImageNotFound         = fmt.Errorf("%w: image not found", ErrNotFound)
	ErrNoTitle               = fmt.Errorf("%w: no title", ErrValidation)
	ErrNoAuthor              = fmt.Errorf("%w: no author", ErrValidation)
	ErrNoBlob                = fmt.Errorf("%w: no image file", ErrValidation)
	ErrImageTypeNotSupported = fmt.Errorf("%w: image type not supported", ErrValidation)
	ErrImageTypeMismatch     = fmt.Errorf("%w: image ext does not match content type", ErrValidation)
	ErrImageTooLarge         = fmt.Errorf("%w: image too large", ErrValidation)
	ErrInvalidWidth          = fmt.Errorf("%w: invalid width", ErrValidation)
)

// BlobRef locates the binary content of an image in the blob store.
type BlobRef struct {
	Path     BlobID `json:"-"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Image is a gallery entry. Images are immutable once created.
type Image struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Blob      BlobRef   `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

// ImageFilter restricts image listings. Zero value matches all images.
type ImageFilter struct {
	Author string
}

// Content is a blob's bytes together with the mime type to serve them with.
type Content struct {
	MIMEType string
	Data     []byte
}

// Size returns the content length in bytes.
func (c Content) Size() int64 {
	return int64(len(c.Data))
}
