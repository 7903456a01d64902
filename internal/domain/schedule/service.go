package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// TreatmentGate is the slice of treatment state the appointment lifecycle
// needs before mutating: the lifecycle status, the billing mode, and whether
// an unsigned contract past its deadline blocks the treatment.
type TreatmentGate struct {
	Status          workflow.TreatmentStatus
	Mode            workflow.PaymentMode
	DeadlineBlocked bool
}

// TreatmentSource resolves the gate for a treatment. Implemented by the
// treatment service and injected at wiring time.
type TreatmentSource interface {
	GateFor(ctx context.Context, treatmentID uuid.UUID) (TreatmentGate, error)
}

// PaymentSource reports the payment statuses gating completion of an
// appointment. Implemented by the payment service.
type PaymentSource interface {
	GateStatuses(ctx context.Context, treatmentID, scheduleID uuid.UUID, mode workflow.PaymentMode) ([]workflow.PaymentStatus, error)
}

// ItemLedger returns a cancelled appointment's catalog items to its phase's
// unset pool. Implemented by the treatment service.
type ItemLedger interface {
	ReleaseSchedule(ctx context.Context, phaseID, scheduleID uuid.UUID) error
}

// Transactor runs fn atomically; repository calls made with the context it
// supplies join the same transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	schedules  Repository
	tx         Transactor
	treatments TreatmentSource
	payments   PaymentSource
	ledger     ItemLedger
}

func NewService(schedules Repository, tx Transactor) *Service {
	return &Service{schedules: schedules, tx: tx}
}

// SetTreatmentSource attaches the treatment gate source. Must be called
// before any mutating operation is served.
func (s *Service) SetTreatmentSource(ts TreatmentSource) { s.treatments = ts }

// SetPaymentSource attaches the payment gate source. Must be called before
// MarkDone is served.
func (s *Service) SetPaymentSource(ps PaymentSource) { s.payments = ps }

// SetItemLedger attaches the phase item ledger. Must be called before Cancel
// is served.
func (s *Service) SetItemLedger(l ItemLedger) { s.ledger = l }

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

// ListByDoctor returns the doctor's appointments intersecting [from, to),
// optionally filtered by status. An empty status matches all.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, status workflow.ScheduleStatus) ([]*Schedule, error) {
	window := workflow.Interval{Start: from, End: to}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown schedule status %q", status)
	}
	return s.schedules.ListByDoctorWindow(ctx, doctorID, window, status)
}

func (s *Service) ListByPhase(ctx context.Context, phaseID uuid.UUID) ([]*Schedule, error) {
	return s.schedules.ListByPhase(ctx, phaseID)
}

// StatusesForPhase exposes the phase's schedule statuses for phase-completion
// checks.
func (s *Service) StatusesForPhase(ctx context.Context, phaseID uuid.UUID) ([]workflow.ScheduleStatus, error) {
	return s.schedules.StatusesForPhase(ctx, phaseID)
}

// CancelOpenByTreatment cancels every open appointment of a treatment.
func (s *Service) CancelOpenByTreatment(ctx context.Context, treatmentID uuid.UUID) (int64, error) {
	return s.schedules.CancelOpenByTreatment(ctx, treatmentID)
}

// Set books or updates an appointment. The overlap check against the
// doctor's open schedules runs inside the same transaction as the write, so
// a stale client view can never sneak a conflicting booking past it. A new
// appointment starts PENDING; an updated one moves to CHANGED. Failure
// leaves no partial rows.
func (s *Service) Set(ctx context.Context, in *Schedule) (*Schedule, error) {
	if err := in.Interval().Validate(); err != nil {
		return nil, err
	}
	if len(in.ServiceIDs) == 0 {
		return nil, workflow.ErrEmptyServiceSet
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if in.ID != uuid.Nil {
			existing, err := s.schedules.GetByID(ctx, in.ID)
			if err != nil {
				return err
			}
			if !existing.Status.Blocking() {
				return workflow.ErrInvalidStateTransition
			}
			in.PhaseID = existing.PhaseID
			in.TreatmentID = existing.TreatmentID
			in.DoctorID = existing.DoctorID
			in.PatientID = existing.PatientID
		}

		if err := s.gateMutation(ctx, in.TreatmentID); err != nil {
			return err
		}
		if err := s.checkOverlap(ctx, in); err != nil {
			return err
		}

		if in.ID == uuid.Nil {
			in.Status = workflow.SchedulePending
			return s.schedules.Create(ctx, in)
		}
		in.Status = workflow.ScheduleChanged
		return s.schedules.Update(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return s.schedules.GetByID(ctx, in.ID)
}

// MarkDone completes an open appointment. It fails with ErrPaymentPending
// while a gating payment is unsettled, ErrContractUnsigned while the
// treatment still awaits its contract, and ErrInvalidState when the
// treatment is terminal or blocked by a lapsed contract deadline.
func (s *Service) MarkDone(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sc, err := s.schedules.GetByID(ctx, id)
		if err != nil {
			return err
		}
		gate, err := s.treatments.GateFor(ctx, sc.TreatmentID)
		if err != nil {
			return err
		}
		if gate.Status.Terminal() || gate.DeadlineBlocked {
			return fmt.Errorf("treatment %s: %w", sc.TreatmentID, workflow.ErrInvalidState)
		}
		if gate.Status == workflow.TreatmentAwaitingContract {
			return workflow.ErrContractUnsigned
		}
		statuses, err := s.payments.GateStatuses(ctx, sc.TreatmentID, sc.ID, gate.Mode)
		if err != nil {
			return err
		}
		if workflow.HasPendingPayment(statuses) {
			return workflow.ErrPaymentPending
		}
		return s.schedules.UpdateStatus(ctx, id,
			[]workflow.ScheduleStatus{workflow.SchedulePending, workflow.ScheduleChanged},
			workflow.ScheduleDone)
	})
	if err != nil {
		return nil, err
	}
	return s.schedules.GetByID(ctx, id)
}

// Reschedule moves an open appointment to a new slot, re-validating overlap
// against the doctor's calendar. The appointment lands in CHANGED.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) (*Schedule, error) {
	iv := workflow.Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return nil, err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sc, err := s.schedules.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !sc.Status.Blocking() {
			return workflow.ErrInvalidStateTransition
		}
		if err := s.gateMutation(ctx, sc.TreatmentID); err != nil {
			return err
		}
		sc.StartTime = start
		sc.EstimatedEnd = end
		if err := s.checkOverlap(ctx, sc); err != nil {
			return err
		}
		sc.Status = workflow.ScheduleChanged
		return s.schedules.Update(ctx, sc)
	})
	if err != nil {
		return nil, err
	}
	return s.schedules.GetByID(ctx, id)
}

// Cancel withdraws an open appointment and returns its services to the
// phase's unset pool. DONE and CANCELLED are terminal; a terminal or
// deadline-blocked treatment fails with ErrInvalidState.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sc, err := s.schedules.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !sc.Status.Blocking() {
			return workflow.ErrInvalidStateTransition
		}
		if err := s.gateMutation(ctx, sc.TreatmentID); err != nil {
			return err
		}
		if err := s.schedules.UpdateStatus(ctx, id,
			[]workflow.ScheduleStatus{workflow.SchedulePending, workflow.ScheduleChanged},
			workflow.ScheduleCancelled); err != nil {
			return err
		}
		return s.ledger.ReleaseSchedule(ctx, sc.PhaseID, sc.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.schedules.GetByID(ctx, id)
}

func (s *Service) gateMutation(ctx context.Context, treatmentID uuid.UUID) error {
	gate, err := s.treatments.GateFor(ctx, treatmentID)
	if err != nil {
		return err
	}
	if gate.Status.Terminal() || gate.DeadlineBlocked {
		return fmt.Errorf("treatment %s: %w", treatmentID, workflow.ErrInvalidState)
	}
	return nil
}

func (s *Service) checkOverlap(ctx context.Context, in *Schedule) error {
	others, err := s.schedules.ListBlockingByDoctor(ctx, in.DoctorID, in.ID)
	if err != nil {
		return err
	}
	for _, o := range others {
		if workflow.Overlaps(in.Interval(), o.Interval()) {
			return fmt.Errorf("conflicts with appointment %s: %w", o.ID, workflow.ErrOverlap)
		}
	}
	return nil
}
