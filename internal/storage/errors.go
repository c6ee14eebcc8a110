package storage

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrValidation is wrapped by every error that rejects a request before any
// filesystem access takes place.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidName      = fmt.Errorf("%w: invalid name", ErrValidation)
	ErrInvalidNamespace = fmt.Errorf("%w: invalid namespace", ErrValidation)
	ErrInvalidRoot      = fmt.Errorf("%w: invalid root", ErrValidation)
	ErrInvalidDigest    = fmt.Errorf("%w: invalid digest", ErrValidation)
	ErrNotConfined      = fmt.Errorf("%w: path escapes cache root", ErrValidation)
)

// ErrNotFound is returned when a blob or name does not exist. It matches
// fs.ErrNotExist.
var ErrNotFound = fmt.Errorf("not found: %w", fs.ErrNotExist)

// Removal is the outcome of a best-effort delete. Removed is false both when
// the target did not exist and when it could not be removed; Err carries the
// underlying cause in either case.
type Removal struct {
	Removed bool
	Err     error
}
