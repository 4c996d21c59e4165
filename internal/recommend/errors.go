package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAnswers rejects a submission that answers nothing.
	ErrNoAnswers = errors.New("no answers submitted")

	// ErrAttemptNotCompleted is returned when a result is requested for an
	// attempt that has not been scored yet.
	ErrAttemptNotCompleted = errors.New("attempt not completed")
)

// PersistenceError wraps a storage failure while writing a result. The
// write is transactional, so the attempt is still in progress (or absent)
// and the submission may be retried.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist result: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Retryable() bool { return true }
