package state

import "errors"

// ErrNotFound indicates no state exists for the requested thread.
var ErrNotFound = errors.New("state not found")

// ErrUnavailable indicates the backing store cannot be reached.
var ErrUnavailable = errors.New("state store unavailable")
