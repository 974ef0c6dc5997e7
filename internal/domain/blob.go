package domain

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// BlobID is a string-based identifier for blob objects.
type BlobID string

// String returns the string representation of the BlobID.
func (id BlobID) String() string {
	return string(id)
}

// Variant derives the id of a derived blob, such as a resized copy.
func (id BlobID) Variant(suffix string) BlobID {
	return BlobID(string(id) + "_" + suffix)
}

// Blob represents a binary large object with an identifier and content.
type Blob struct {
	ID   BlobID
	Body []byte
}

// NewBlob creates a new Blob with the given ID and content.
func NewBlob(id BlobID, body []byte) *Blob {
	return &Blob{
		ID:   id,
		Body: body,
	}
}

// Size returns the size of the blob's content in bytes.
func (blob *Blob) Size() int64 {
	return int64(len(blob.Body))
}

// Read returns a reader for accessing the blob's content.
func (blob *Blob) Read() io.Reader {
	return bytes.NewReader(blob.Body)
}

// Bytes returns the blob's content as a byte slice.
func (blob *Blob) Bytes() []byte {
	return blob.Body
}

// ReadFrom replaces the blob's content with everything read from reader.
func (blob *Blob) ReadFrom(reader io.Reader) (int64, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return 0, fmt.Errorf("read all: %w", err)
	}

	blob.Body = body

	return int64(len(body)), nil
}

var (
	// ErrBlobNotFound is returned when a blob does not exist in the store.
	ErrBlobNotFound = fmt.Errorf("%w: blob not found", ErrNotFound)
	// ErrInvalidBlobID is returned for ids that cannot be mapped to a storage key.
	ErrInvalidBlobID = fmt.Errorf("%w: invalid blob id", ErrValidation)
)

// Base returns the id with any variant suffix removed.
func (id BlobID) Base() BlobID {
	base, _, _ := strings.Cut(string(id), "_")

	return BlobID(base)
}

// Valid reports whether id consists of lowercase letters, digits and variant separators only.
func (id BlobID) Valid() bool {
	if id == "" || id[0] == '_' {
		return false
	}

	for i := range len(id) {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}

	return true
}
