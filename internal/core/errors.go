package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAnswerShape is returned when an answer's kind does not match
	// the input kind the current state expects. The session stays where it is.
	ErrInvalidAnswerShape = errors.New("answer shape does not match the current question")

	// ErrUnknownState is returned for a state token outside the wizard's
	// transition table. The session cannot continue.
	ErrUnknownState = errors.New("unknown sort state")

	// ErrDispositionTaskMismatch is an internal consistency fault: the
	// disposition is not a well-formed known variant.
	ErrDispositionTaskMismatch = errors.New("disposition does not match any known variant")

	ErrTaskNotFound     = errors.New("task not found")
	ErrSessionNotFound  = errors.New("sort session not found")
	ErrSessionFinished  = errors.New("sort session already finished")
	ErrVersionConflict  = errors.New("task was modified concurrently")
	ErrNoPriorState     = errors.New("no earlier question to go back to")
	ErrAlreadyCompleted = errors.New("task already completed")
)

// ValidationError reports a field-level problem with structured input.
// Callers are expected to re-prompt for Field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsRecoverable reports whether err leaves a sort session usable, so the
// caller can re-prompt instead of aborting.
func IsRecoverable(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrInvalidAnswerShape) || errors.As(err, &ve)
}
