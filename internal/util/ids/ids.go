// Package ids generates the opaque identifiers used for images, comments and sessions.
package ids

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkrupp/webgallery/internal/util/encoding"
)

// TokenSize is the number of random bytes in a session token.
const TokenSize = 32

// New returns a time-ordered unique identifier rendered in Crockford base32.
func New() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("uuid: %w", err)
	}

	return encoding.Crockford(id[:]), nil
}

// Token returns an unguessable random token rendered in Crockford base32.
func Token() (string, error) {
	buf := make([]byte, TokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}

	return encoding.Crockford(buf), nil
}

// Parse normalizes an identifier taken from user input and reports whether it is well formed.
func Parse(input string) (string, bool) {
	id := encoding.NormalizeCrockford(input)

	return id, encoding.IsCrockford(id)
}
