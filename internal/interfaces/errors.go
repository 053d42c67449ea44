package interfaces

import "errors"

// ErrNotFound is returned by storage lookups for absent keys
var ErrNotFound = errors.New("not found")
