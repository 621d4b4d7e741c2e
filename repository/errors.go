package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the store could not be reached at all.
	ErrStoreUnavailable = errors.New("track store unavailable")
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("track not found")
)

// StoreWriteError wraps a failed or timed out write.
type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("track store %s failed: %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreReadError wraps a failed read or subscription.
type StoreReadError struct {
	Op  string
	Err error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("track store %s failed: %v", e.Op, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }
