package bids

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested bid does not exist.
var ErrNotFound = errors.New("bid not found")

// PersistenceError reports a failed save. Nothing was committed; the caller
// may retry with the same in-memory item list.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("bid persistence failed (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
