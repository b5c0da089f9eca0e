package observability

import (
	"errors"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
)

// denialReason maps a move error to a low-cardinality label suitable for
// a metric attribute. Unknown errors collapse to "other" so callers
// cannot blow up attribute cardinality with wrapped detail.
func denialReason(err error) string {
	switch {
	case errors.Is(err, metatasks.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, metatasks.ErrInactiveTransition):
		return "inactive_transition"
	case errors.Is(err, metatasks.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, metatasks.ErrMissingComment):
		return "missing_comment"
	case errors.Is(err, metatasks.ErrBookingRequired):
		return "booking_required"
	case errors.Is(err, metatasks.ErrInvalidBackwardTarget):
		return "invalid_backward_target"
	case errors.Is(err, metatasks.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, metatasks.ErrMalformedCondition):
		return "malformed_condition"
	case errors.Is(err, metatasks.ErrConfirmationRequired):
		return "confirmation_required"
	default:
		return "other"
	}
}
