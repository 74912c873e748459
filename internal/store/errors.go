package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Backend when no value is stored under a key.
var ErrNotFound = errors.New("record not found")

// ErrStorageUnavailable indicates the backend could not be read or written.
type ErrStorageUnavailable struct {
	Op  string // "load", "save" or "reset"
	Key string
	Err error
}

func (e *ErrStorageUnavailable) Error() string {
	return fmt.Sprintf("storage unavailable (%s %s): %v", e.Op, e.Key, e.Err)
}

func (e *ErrStorageUnavailable) Unwrap() error { return e.Err }

// ErrCorruptState indicates the stored record could not be parsed or failed
// shape validation. The default record was used instead.
type ErrCorruptState struct {
	Key string
	Err error
}

func (e *ErrCorruptState) Error() string {
	return fmt.Sprintf("corrupt progress record %s: %v", e.Key, e.Err)
}

func (e *ErrCorruptState) Unwrap() error { return e.Err }

// IsStorageUnavailable reports whether err is or wraps an ErrStorageUnavailable.
func IsStorageUnavailable(err error) bool {
	var target *ErrStorageUnavailable
	return errors.As(err, &target)
}

// IsCorrupt reports whether err is or wraps an ErrCorruptState.
func IsCorrupt(err error) bool {
	var target *ErrCorruptState
	return errors.As(err, &target)
}
