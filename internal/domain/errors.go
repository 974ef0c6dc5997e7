package domain

import "errors"

// Failure taxonomy. Every error returned by a service wraps exactly one of these,
// and the transport layer maps them to status codes with errors.Is.
var (
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when there is no valid session or the requester is not the owner.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a resource id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key already exists.
	ErrConflict = errors.New("conflict")
	// ErrStorage is returned when the underlying persistence layer fails.
	ErrStorage = errors.New("storage failure")
	// ErrPartialFailure is returned when a multi-step operation stopped after an
	// irreversible step. It is a storage failure.
	ErrPartialFailure = errors.Join(ErrStorage, errors.New("partial failure"))
)

// StorageError attaches ErrStorage to err unless err is already classified.
func StorageError(err error) error {
	if err == nil || IsClassified(err) {
		return err
	}

	return errors.Join(ErrStorage, err)
}

// IsClassified reports whether err wraps one of the taxonomy sentinels.
func IsClassified(err error) bool {
	for _, target := range []error{ErrValidation, ErrUnauthorized, ErrNotFound, ErrConflict, ErrStorage} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
