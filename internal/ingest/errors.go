package ingest

import "fmt"

// ValidationError reports a malformed payload or a missing required
// identifying field. Not retryable: the same request will always fail.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StorageError wraps a persistence failure. Retryable: the triggering event
// was not persisted and the upsert is idempotent on the call id.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
