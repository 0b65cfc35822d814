package script

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOp is returned for a step with an unrecognised op.
	ErrUnknownOp = errors.New("unknown op")

	// ErrInvalidStep is returned for a step missing a required field.
	ErrInvalidStep = errors.New("invalid step")

	// ErrUnknownRef is returned when a "$name" reference was never bound,
	// or an undo-to or redo-to step names a checkpoint never set.
	ErrUnknownRef = errors.New("unknown reference")

	// ErrForcedAbort is the cause of a transaction step marked fail.
	ErrForcedAbort = errors.New("forced abort")

	// ErrExpectation is returned when a step's expect clause does not hold.
	ErrExpectation = errors.New("expectation failed")
)

// StepError reports the step that failed.
type StepError struct {
	Path string // 1-based position, nested steps joined with "."
	Op   string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s (%s): %v", e.Path, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
