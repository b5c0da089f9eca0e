package metatasks

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("metatasks: no store configured")
	ErrStoreClosed = errors.New("metatasks: store closed")

	// Not found errors.
	ErrWorkflowNotFound   = errors.New("metatasks: workflow not found")
	ErrStepNotFound       = errors.New("metatasks: step not found")
	ErrTransitionNotFound = errors.New("metatasks: transition not found")
	ErrItemNotFound       = errors.New("metatasks: work item not found")

	// Graph structure errors.
	ErrDuplicateTransition = errors.New("metatasks: duplicate transition")
	ErrInvalidStepPair     = errors.New("metatasks: invalid step pair")

	// Move errors.
	ErrInvalidTransition     = errors.New("metatasks: transition does not start at current step")
	ErrInactiveTransition    = errors.New("metatasks: transition is inactive")
	ErrPermissionDenied      = errors.New("metatasks: permission denied")
	ErrMissingComment        = errors.New("metatasks: comment required")
	ErrBookingRequired       = errors.New("metatasks: destination step requires booking")
	ErrInvalidBackwardTarget = errors.New("metatasks: step not in visited history")
	ErrConfirmationRequired  = errors.New("metatasks: transition requires confirmation")

	// Concurrency errors.
	ErrConcurrentModification = errors.New("metatasks: concurrent modification")
	ErrVersionConflict        = errors.New("metatasks: work item version conflict")

	// Condition errors.
	ErrMalformedCondition = errors.New("metatasks: malformed custom condition")
)
