package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no appointment has the requested id.
	ErrNotFound = errors.New("appointments: not found")
	// ErrInvalidTransition matches every *TransitionError.
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
	// ErrNotReschedulable is returned when rescheduling a closed appointment.
	ErrNotReschedulable = errors.New("appointments: only pending or confirmed appointments can be rescheduled")
)

// TransitionError rejects a status change outside the lifecycle graph.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("appointments: cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PersistenceError wraps a failed write or read against the backing store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("appointments: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
