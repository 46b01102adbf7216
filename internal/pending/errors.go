package pending

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrDuplicateID indicates a request reused an identifier that is
	// already tracked by the registry.
	ErrDuplicateID = errors.New("pending: duplicate request id")

	// ErrNotFound indicates the request id is unknown, either because it
	// never existed or because its entry was already removed.
	ErrNotFound = errors.New("pending: request not found")
)
