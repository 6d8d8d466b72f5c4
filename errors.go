package setstate

import "github.com/pkg/errors"

var (
	// ErrContextNotFound is returned when a request names a context that is
	// not (or no longer) mounted.
	ErrContextNotFound = errors.New("context not found")

	// ErrActionNotFound is returned when a context has no action with the
	// requested id.
	ErrActionNotFound = errors.New("action not found")
)
