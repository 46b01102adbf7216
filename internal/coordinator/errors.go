package coordinator

import "errors"

// Sentinel errors for the IPC surface.
var (
	// ErrMalformedRequest indicates the request line could not be parsed
	// or is missing a required field. The connection is dropped without a
	// response; the hook falls back to the interactive UI.
	ErrMalformedRequest = errors.New("coordinator: malformed request")

	// ErrListenerClosed indicates the listener was shut down.
	ErrListenerClosed = errors.New("coordinator: listener closed")
)
