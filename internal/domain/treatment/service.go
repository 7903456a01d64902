package treatment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/assigndrug"
	"github.com/ferticare/portal/internal/domain/schedule"
	"github.com/ferticare/portal/internal/domain/workflow"
)

// ContractInfo is the slice of contract state gating treatment mutation.
type ContractInfo struct {
	Signed   bool
	Deadline time.Time
}

// ContractGateway is satisfied by an adapter over the contract service.
type ContractGateway interface {
	Create(ctx context.Context, treatmentID uuid.UUID, deadline time.Time) error
	InfoByTreatment(ctx context.Context, treatmentID uuid.UUID) (ContractInfo, error)
	// UnsignedPastDeadline returns the owning treatment ids of contracts
	// the deadline sweep must reconcile.
	UnsignedPastDeadline(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// PaymentGateway opens payments. Satisfied by an adapter over the payment
// service.
type PaymentGateway interface {
	Create(ctx context.Context, treatmentID uuid.UUID, scheduleID *uuid.UUID, amount int64, deadline *time.Time) error
}

// ScheduleGateway is satisfied by the schedule service.
type ScheduleGateway interface {
	Get(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error)
	Set(ctx context.Context, in *schedule.Schedule) (*schedule.Schedule, error)
	StatusesForPhase(ctx context.Context, phaseID uuid.UUID) ([]workflow.ScheduleStatus, error)
	CancelOpenByTreatment(ctx context.Context, treatmentID uuid.UUID) (int64, error)
}

// PrescriptionGateway is satisfied by the assign-drug service.
type PrescriptionGateway interface {
	Create(ctx context.Context, a *assigndrug.AssignDrug) error
}

// ServicePricer totals catalog prices for a service set. Satisfied by the
// catalog service.
type ServicePricer interface {
	PriceOf(ctx context.Context, serviceIDs []uuid.UUID) (int64, error)
}

// Transactor runs fn atomically; repository calls made with the context it
// supplies join the same transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	treatments    Repository
	tx            Transactor
	contracts     ContractGateway
	payments      PaymentGateway
	schedules     ScheduleGateway
	prescriptions PrescriptionGateway
	pricer        ServicePricer
	signWindow    time.Duration
	now           func() time.Time
}

// NewService builds the treatment service. signWindow is how long a patient
// has to sign the contract spawned at creation.
func NewService(treatments Repository, tx Transactor, signWindow time.Duration) *Service {
	return &Service{treatments: treatments, tx: tx, signWindow: signWindow, now: time.Now}
}

func (s *Service) SetContractGateway(g ContractGateway)         { s.contracts = g }
func (s *Service) SetPaymentGateway(g PaymentGateway)           { s.payments = g }
func (s *Service) SetScheduleGateway(g ScheduleGateway)         { s.schedules = g }
func (s *Service) SetPrescriptionGateway(g PrescriptionGateway) { s.prescriptions = g }
func (s *Service) SetPricer(p ServicePricer)                    { s.pricer = p }

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create opens a treatment in AWAITING_CONTRACT_SIGNED with its phases and
// spawns the contract the patient must sign. Up-front billing opens the
// single treatment payment immediately; per-phase billing defers payments
// to appointment booking.
func (s *Service) Create(ctx context.Context, t *Treatment) (*Treatment, error) {
	if t.PatientID == uuid.Nil || t.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("patient_id and doctor_id are required")
	}
	if !t.PaymentMode.Valid() {
		return nil, fmt.Errorf("unknown payment mode %q", t.PaymentMode)
	}
	if err := validatePhases(t.Phases); err != nil {
		return nil, err
	}

	now := s.now()
	t.Status = workflow.TreatmentAwaitingContract
	t.StartDate = now
	deadline := now.Add(s.signWindow)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.treatments.Create(ctx, t); err != nil {
			return err
		}
		if err := s.contracts.Create(ctx, t.ID, deadline); err != nil {
			return err
		}
		if t.PaymentMode == workflow.PaymentModeFull {
			amount, err := s.pricer.PriceOf(ctx, serviceItemIDs(t.Phases))
			if err != nil {
				return err
			}
			return s.payments.Create(ctx, t.ID, nil, amount, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.treatments.GetByID(ctx, t.ID)
}

// validatePhases requires at least one phase, uniquely positioned 1..N with
// no gaps, and no repeated catalog item within a phase.
func validatePhases(phases []*Phase) error {
	if len(phases) == 0 {
		return fmt.Errorf("a treatment requires at least one phase")
	}
	sorted := make([]*Phase, len(phases))
	copy(sorted, phases)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	for i, p := range sorted {
		if p.Position != i+1 {
			return fmt.Errorf("phase positions must be contiguous from 1")
		}
		seen := make(map[uuid.UUID]bool, len(p.Items))
		for _, it := range p.Items {
			if it.ItemID == uuid.Nil {
				return fmt.Errorf("phase %q: item_id is required", p.Title)
			}
			if seen[it.ItemID] {
				return fmt.Errorf("phase %q repeats item %s", p.Title, it.ItemID)
			}
			seen[it.ItemID] = true
		}
	}
	return nil
}

func serviceItemIDs(phases []*Phase) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range phases {
		for _, it := range p.Items {
			if it.Kind == ItemService {
				ids = append(ids, it.ItemID)
			}
		}
	}
	return ids
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	return s.treatments.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, doctorID, patientID uuid.UUID, limit, offset int) ([]*Treatment, int, error) {
	return s.treatments.List(ctx, doctorID, patientID, limit, offset)
}

// Activate moves the treatment out of AWAITING_CONTRACT_SIGNED once its
// contract is signed. Satisfies the contract service's activator hook.
func (s *Service) Activate(ctx context.Context, treatmentID uuid.UUID) error {
	return s.treatments.UpdateStatus(ctx, treatmentID,
		[]workflow.TreatmentStatus{workflow.TreatmentAwaitingContract},
		workflow.TreatmentInProgress, nil)
}

// TreatmentState satisfies the assign-drug service's treatment source.
func (s *Service) TreatmentState(ctx context.Context, id uuid.UUID) (workflow.TreatmentStatus, error) {
	t, err := s.treatments.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

// GateFor satisfies the schedule service's treatment source: lifecycle
// status, billing mode, and whether an unsigned lapsed contract blocks the
// treatment.
func (s *Service) GateFor(ctx context.Context, treatmentID uuid.UUID) (schedule.TreatmentGate, error) {
	t, err := s.treatments.GetByID(ctx, treatmentID)
	if err != nil {
		return schedule.TreatmentGate{}, err
	}
	info, err := s.contracts.InfoByTreatment(ctx, treatmentID)
	if err != nil {
		return schedule.TreatmentGate{}, err
	}
	return schedule.TreatmentGate{
		Status:          t.Status,
		Mode:            t.PaymentMode,
		DeadlineBlocked: workflow.DeadlineBlocked(info.Signed, info.Deadline, s.now()),
	}, nil
}

// phaseComplete: at least one appointment reached DONE and none is still
// open. Cancelled appointments do not count either way; a phase with no
// schedules at all is not complete.
func phaseComplete(statuses []workflow.ScheduleStatus) bool {
	done := false
	for _, st := range statuses {
		if st.Blocking() {
			return false
		}
		if st == workflow.ScheduleDone {
			done = true
		}
	}
	return done
}

// MoveToNextPhase advances the treatment one phase, or completes it when
// the current phase is the last. Fails with ErrPhaseNotComplete while the
// current phase has open or no completed appointments, and with
// ErrContractUnsigned while the treatment still awaits its contract. On
// failure nothing moves.
func (s *Service) MoveToNextPhase(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		t, err := s.treatments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.Status.Terminal() {
			return fmt.Errorf("treatment is %s: %w", t.Status, workflow.ErrInvalidState)
		}
		cur := t.CurrentPhase()
		if cur == nil {
			return fmt.Errorf("treatment has no current phase: %w", workflow.ErrInvalidState)
		}
		statuses, err := s.schedules.StatusesForPhase(ctx, cur.ID)
		if err != nil {
			return err
		}
		if !phaseComplete(statuses) {
			return workflow.ErrPhaseNotComplete
		}
		if t.Status == workflow.TreatmentAwaitingContract {
			return workflow.ErrContractUnsigned
		}

		next := t.NextPhase()
		if next == nil {
			now := s.now()
			return s.treatments.UpdateStatus(ctx, t.ID,
				[]workflow.TreatmentStatus{workflow.TreatmentInProgress},
				workflow.TreatmentCompleted, &now)
		}
		return s.treatments.SetCurrentPhase(ctx, t.ID, next.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.treatments.GetByID(ctx, id)
}

// Cancel terminates a non-terminal treatment and withdraws its open
// appointments.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.treatments.UpdateStatus(ctx, id,
			[]workflow.TreatmentStatus{workflow.TreatmentAwaitingContract, workflow.TreatmentInProgress},
			workflow.TreatmentCancelled, nil); err != nil {
			return err
		}
		_, err := s.schedules.CancelOpenByTreatment(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.treatments.GetByID(ctx, id)
}

// SetPhaseInput carries one atomic phase mutation: appointments to book or
// move, and prescription bundles to issue. Catalog items consumed by either
// leave the phase's unset pool.
type SetPhaseInput struct {
	PhaseID     uuid.UUID
	Schedules   []*schedule.Schedule
	AssignDrugs []*assigndrug.AssignDrug
}

// SetPhase applies the whole input inside one transaction: every
// appointment write revalidates overlap, every consumed catalog item moves
// out of the unset pool exactly once, and per-phase billing opens one
// payment per new appointment. Any failure rolls the whole request back.
func (s *Service) SetPhase(ctx context.Context, in SetPhaseInput) (*Phase, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		phase, err := s.treatments.GetPhase(ctx, in.PhaseID)
		if err != nil {
			return err
		}
		t, err := s.treatments.GetByID(ctx, phase.TreatmentID)
		if err != nil {
			return err
		}
		if t.Status.Terminal() {
			return fmt.Errorf("treatment is %s: %w", t.Status, workflow.ErrInvalidState)
		}

		for _, sc := range in.Schedules {
			creating := sc.ID == uuid.Nil
			var prev *schedule.Schedule
			if !creating {
				prev, err = s.schedules.Get(ctx, sc.ID)
				if err != nil {
					return err
				}
				if prev.PhaseID != phase.ID {
					return fmt.Errorf("schedule %s belongs to another phase: %w", sc.ID, workflow.ErrNotFound)
				}
			}
			sc.PhaseID = phase.ID
			sc.TreatmentID = t.ID
			if sc.DoctorID == uuid.Nil {
				sc.DoctorID = t.DoctorID
			}
			if sc.PatientID == uuid.Nil {
				sc.PatientID = t.PatientID
			}
			saved, err := s.schedules.Set(ctx, sc)
			if err != nil {
				return err
			}
			if !creating {
				if err := realignItems(phase, prev, saved); err != nil {
					return err
				}
				continue
			}
			for _, serviceID := range saved.ServiceIDs {
				if err := phase.AssignItem(serviceID, saved.ID); err != nil {
					return err
				}
			}
			if t.PaymentMode == workflow.PaymentModeByPhase {
				amount, err := s.pricer.PriceOf(ctx, saved.ServiceIDs)
				if err != nil {
					return err
				}
				sid := saved.ID
				if err := s.payments.Create(ctx, t.ID, &sid, amount, nil); err != nil {
					return err
				}
			}
		}

		for _, ad := range in.AssignDrugs {
			ad.TreatmentID = t.ID
			ad.PhaseID = phase.ID
			if ad.DoctorID == uuid.Nil {
				ad.DoctorID = t.DoctorID
			}
			if err := s.prescriptions.Create(ctx, ad); err != nil {
				return err
			}
			for _, item := range ad.Items {
				if err := phase.AssignItem(item.DrugID, ad.ID); err != nil {
					return err
				}
			}
		}

		return s.treatments.SavePhaseItems(ctx, phase)
	})
	if err != nil {
		return nil, err
	}
	return s.treatments.GetPhase(ctx, in.PhaseID)
}

// realignItems moves the ledger to match an updated appointment's service
// set: services it dropped return to the unset pool, services it picked up
// leave it. Dropping a service is subject to the same PENDING-only rule as
// any unassignment.
func realignItems(phase *Phase, prev, cur *schedule.Schedule) error {
	kept := make(map[uuid.UUID]bool, len(cur.ServiceIDs))
	for _, id := range cur.ServiceIDs {
		kept[id] = true
	}
	had := make(map[uuid.UUID]bool, len(prev.ServiceIDs))
	for _, id := range prev.ServiceIDs {
		had[id] = true
		if !kept[id] {
			if err := phase.UnassignItem(id, prev.Status); err != nil {
				return err
			}
		}
	}
	for _, id := range cur.ServiceIDs {
		if !had[id] {
			if err := phase.AssignItem(id, cur.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReleaseSchedule returns a cancelled appointment's services to its phase's
// unset pool. Satisfies the schedule service's item ledger; runs inside the
// cancellation transaction.
func (s *Service) ReleaseSchedule(ctx context.Context, phaseID, scheduleID uuid.UUID) error {
	phase, err := s.treatments.GetPhase(ctx, phaseID)
	if err != nil {
		return err
	}
	if phase.ReleaseTarget(scheduleID) == 0 {
		return nil
	}
	return s.treatments.SavePhaseItems(ctx, phase)
}

// ReconcileDeadlines cancels every treatment whose contract is unsigned
// past its deadline, withdrawing open appointments as it goes. Returns how
// many treatments were cancelled. Runs periodically from main.
func (s *Service) ReconcileDeadlines(ctx context.Context) (int, error) {
	ids, err := s.contracts.UnsignedPastDeadline(ctx, s.now())
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, id := range ids {
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.treatments.UpdateStatus(ctx, id,
				[]workflow.TreatmentStatus{workflow.TreatmentAwaitingContract, workflow.TreatmentInProgress},
				workflow.TreatmentCancelled, nil); err != nil {
				return err
			}
			_, err := s.schedules.CancelOpenByTreatment(ctx, id)
			return err
		})
		switch {
		case err == nil:
			cancelled++
		case workflow.IsStateError(err):
			// Already terminal; nothing to reconcile.
		default:
			return cancelled, err
		}
	}
	return cancelled, nil
}
