package basket

import "errors"

// Error kinds returned by the basket core. Callers match them with errors.Is;
// every returned error wraps exactly one of these with context.
var (
	// ErrNotFound is returned when a referenced basket, snapshot or object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for unknown object types, duplicate basket names and
	// payloads rejected by the object repository.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedDocument is returned when input is not JSON or not shaped as
	// type -> name -> payload.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrIneligibleType is returned when a purge is requested for a type that has
	// no purge mapping.
	ErrIneligibleType = errors.New("object type is not eligible for purge")

	// ErrRefusedEmptyPurge is returned when a purge would remove every live object of
	// a type because the document ships none of them and force was not given.
	ErrRefusedEmptyPurge = errors.New("refusing to purge all objects of type without force")
)
