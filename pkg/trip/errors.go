package trip

import "fmt"

// ValidationError rejects bad creation or chat input before any state
// change happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StateConflictError rejects a command that is not legal for the
// trip's current status.
type StateConflictError struct {
	Op     string
	Status Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s while trip is %s", e.Op, e.Status)
}

// NotFoundError reports an unknown trip id
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("trip %s not found", e.ID)
}

// ModelError reports a model backend failure after the retry budget
// was spent.
type ModelError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// StoreError reports a persistence failure. The operation that hit it
// committed nothing and is safe to retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
