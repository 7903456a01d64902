package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*Payment, error)
	ListByStatus(ctx context.Context, status workflow.PaymentStatus, limit, offset int) ([]*Payment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to workflow.PaymentStatus) error
	StatusesForTreatment(ctx context.Context, treatmentID uuid.UUID) ([]workflow.PaymentStatus, error)
	StatusesForSchedule(ctx context.Context, scheduleID uuid.UUID) ([]workflow.PaymentStatus, error)
}
