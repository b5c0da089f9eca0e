package metatasks

import (
	"fmt"

	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// MoveError is a structured move failure. It wraps one of the sentinel
// move errors (ErrInvalidTransition, ErrPermissionDenied, ...) and carries
// enough context for a caller to render an actionable message without
// re-deriving the cause.
type MoveError struct {
	// Kind is the sentinel error identifying the rule that was violated.
	Kind error

	// Rule is a short human-readable statement of the violated rule,
	// e.g. "requires organization admin or staff role".
	Rule string

	ItemID       id.ID
	ActorID      id.ID
	StepID       id.ID
	TransitionID id.ID
}

// Error implements the error interface.
func (e *MoveError) Error() string {
	if e.Rule == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Rule)
}

// Unwrap returns the sentinel kind so callers can match with errors.Is.
func (e *MoveError) Unwrap() error { return e.Kind }
