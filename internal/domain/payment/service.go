package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

type Service struct {
	payments Repository
}

func NewService(payments Repository) *Service {
	return &Service{payments: payments}
}

// Create opens a PENDING payment. ScheduleID is nil for up-front payment
// mode, where a single payment covers the whole treatment.
func (s *Service) Create(ctx context.Context, treatmentID uuid.UUID, scheduleID *uuid.UUID, amount int64, deadline *time.Time) (*Payment, error) {
	if treatmentID == uuid.Nil {
		return nil, fmt.Errorf("treatment_id is required")
	}
	if amount < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	p := &Payment{
		TreatmentID: treatmentID,
		ScheduleID:  scheduleID,
		Amount:      amount,
		Status:      workflow.PaymentPending,
		Deadline:    deadline,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *Service) ListByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*Payment, error) {
	return s.payments.ListByTreatment(ctx, treatmentID)
}

// List returns payments filtered by status; an empty status matches all.
func (s *Service) List(ctx context.Context, status workflow.PaymentStatus, limit, offset int) ([]*Payment, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("unknown payment status %q", status)
	}
	return s.payments.ListByStatus(ctx, status, limit, offset)
}

// Complete settles a pending payment. Completed and cancelled payments are
// terminal.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Payment, error) {
	if err := s.payments.UpdateStatus(ctx, id, workflow.PaymentPending, workflow.PaymentCompleted); err != nil {
		return nil, err
	}
	return s.payments.GetByID(ctx, id)
}

// Cancel voids a pending payment.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Payment, error) {
	if err := s.payments.UpdateStatus(ctx, id, workflow.PaymentPending, workflow.PaymentCancelled); err != nil {
		return nil, err
	}
	return s.payments.GetByID(ctx, id)
}

// GateStatuses returns the payment statuses that gate completion of the
// given appointment: every payment on the treatment when it is paid up
// front, the payments linked to the appointment otherwise.
func (s *Service) GateStatuses(ctx context.Context, treatmentID, scheduleID uuid.UUID, mode workflow.PaymentMode) ([]workflow.PaymentStatus, error) {
	if mode == workflow.PaymentModeFull {
		return s.payments.StatusesForTreatment(ctx, treatmentID)
	}
	return s.payments.StatusesForSchedule(ctx, scheduleID)
}
