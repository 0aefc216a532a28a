package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrBlocked is returned when the database file stays locked by another
	// process for longer than Options.Timeout.
	ErrBlocked = errors.New("kvstore: database is locked by another process")

	// ErrVersionDowngrade is returned when the file was written by a newer schema.
	ErrVersionDowngrade = errors.New("kvstore: stored schema version is newer than requested")

	// ErrNoSuchStore is returned for an object store not declared in the schema.
	ErrNoSuchStore = errors.New("kvstore: no such object store")

	// ErrKeyRequired is returned when an out-of-line store is written without a key.
	ErrKeyRequired = errors.New("kvstore: key required for out-of-line store")

	// ErrKeyNotAllowed is returned when an explicit key is given to an in-line store.
	ErrKeyNotAllowed = errors.New("kvstore: explicit key not allowed for in-line store")

	// ErrMissingKey is returned when a document lacks its key path field.
	ErrMissingKey = errors.New("kvstore: document has no value at key path")
)

// TxError describes a failed store operation. Every error returned by the
// package's read and write helpers is a *TxError.
type TxError struct {
	Op    string
	Store string
	Key   string
	Err   error
}

func (e *TxError) Error() string {
	switch {
	case e.Store == "":
		return fmt.Sprintf("kvstore: %s: %v", e.Op, e.Err)
	case e.Key == "":
		return fmt.Sprintf("kvstore: %s %s: %v", e.Op, e.Store, e.Err)
	default:
		return fmt.Sprintf("kvstore: %s %s/%s: %v", e.Op, e.Store, e.Key, e.Err)
	}
}

func (e *TxError) Unwrap() error {
	return e.Err
}
