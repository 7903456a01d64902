package workflow

// TreatmentStatus is the closed set of treatment lifecycle states.
type TreatmentStatus string

const (
	TreatmentAwaitingContract TreatmentStatus = "AWAITING_CONTRACT_SIGNED"
	TreatmentInProgress       TreatmentStatus = "IN_PROGRESS"
	TreatmentCompleted        TreatmentStatus = "COMPLETED"
	TreatmentCancelled        TreatmentStatus = "CANCELLED"
)

// Valid reports whether s is one of the known treatment states.
func (s TreatmentStatus) Valid() bool {
	switch s {
	case TreatmentAwaitingContract, TreatmentInProgress, TreatmentCompleted, TreatmentCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s TreatmentStatus) Terminal() bool {
	return s == TreatmentCompleted || s == TreatmentCancelled
}

// ScheduleStatus is the closed set of appointment states.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "PENDING"
	ScheduleChanged   ScheduleStatus = "CHANGED"
	ScheduleDone      ScheduleStatus = "DONE"
	ScheduleCancelled ScheduleStatus = "CANCELLED"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case SchedulePending, ScheduleChanged, ScheduleDone, ScheduleCancelled:
		return true
	}
	return false
}

func (s ScheduleStatus) Terminal() bool {
	return s == ScheduleDone || s == ScheduleCancelled
}

// Blocking reports whether a schedule in this state occupies its doctor's
// calendar for overlap purposes.
func (s ScheduleStatus) Blocking() bool {
	return s == SchedulePending || s == ScheduleChanged
}

// PaymentStatus is the closed set of payment states.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentCancelled:
		return true
	}
	return false
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentCancelled
}

// AssignDrugStatus is the closed set of prescription-bundle states.
type AssignDrugStatus string

const (
	AssignDrugPending   AssignDrugStatus = "PENDING"
	AssignDrugCompleted AssignDrugStatus = "COMPLETED"
	AssignDrugCancelled AssignDrugStatus = "CANCELLED"
)

func (s AssignDrugStatus) Valid() bool {
	switch s {
	case AssignDrugPending, AssignDrugCompleted, AssignDrugCancelled:
		return true
	}
	return false
}

func (s AssignDrugStatus) Terminal() bool {
	return s == AssignDrugCompleted || s == AssignDrugCancelled
}

// PaymentMode selects how a treatment is billed.
type PaymentMode string

const (
	PaymentModeFull    PaymentMode = "FULL"
	PaymentModeByPhase PaymentMode = "BY_PHASE"
)

func (m PaymentMode) Valid() bool {
	return m == PaymentModeFull || m == PaymentModeByPhase
}
