package workflow

import "errors"

// Validation errors: the request itself is malformed. Reported synchronously,
// never retried.
var (
	ErrInvalidInterval = errors.New("appointment end must be after its start")
	ErrEmptyServiceSet = errors.New("a schedule requires at least one service")
	ErrOverlap         = errors.New("appointment overlaps an existing appointment for this doctor")
)

// State errors: the request is well-formed but the entity graph forbids it.
// The operation aborts with no partial mutation.
var (
	ErrInvalidState           = errors.New("treatment is in a terminal or blocked state")
	ErrInvalidStateTransition = errors.New("transition not allowed from current status")
	ErrPhaseNotComplete       = errors.New("current phase is not complete")
	ErrContractUnsigned       = errors.New("treatment contract has not been signed")
	ErrPaymentPending         = errors.New("a linked payment is still pending")
	ErrDuplicateAssignment    = errors.New("catalog item is already assigned to a schedule")
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// IsValidation reports whether err belongs to the validation family.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrEmptyServiceSet) ||
		errors.Is(err, ErrOverlap)
}

// IsStateError reports whether err belongs to the state family.
func IsStateError(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrPhaseNotComplete) ||
		errors.Is(err, ErrContractUnsigned) ||
		errors.Is(err, ErrPaymentPending) ||
		errors.Is(err, ErrDuplicateAssignment)
}
