package quiz

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError describes a rejected transition. Its cause is ErrInvalidTransition.
type TransitionError struct {
	Op     string
	Phase  PhaseKind
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s while %s: %s", ErrInvalidTransition, e.Op, e.Phase, e.Reason)
}

func (e *TransitionError) Cause() error  { return ErrInvalidTransition }
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func rejected(op string, st State, reason string) error {
	return &TransitionError{Op: op, Phase: phaseOf(st), Reason: reason}
}

// IsInvalidTransition reports whether err was caused by a rejected transition.
func IsInvalidTransition(err error) bool {
	return errors.Cause(err) == ErrInvalidTransition
}
