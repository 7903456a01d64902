package workflow

import "time"

// HasPendingPayment reports whether any linked payment is still PENDING.
func HasPendingPayment(statuses []PaymentStatus) bool {
	for _, s := range statuses {
		if s == PaymentPending {
			return true
		}
	}
	return false
}

// PastDeadline reports whether now is strictly after deadline.
func PastDeadline(deadline, now time.Time) bool {
	return now.After(deadline)
}

// DeadlineBlocked reports whether an unsigned contract past its deadline
// must block further mutation of the owning treatment. The treatment is
// reconciled to CANCELLED by the deadline sweep; until that lands, every
// mutating call observing this condition fails with ErrInvalidState.
func DeadlineBlocked(signed bool, deadline, now time.Time) bool {
	return !signed && PastDeadline(deadline, now)
}
