package assigndrug

import (
	"context"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

type Repository interface {
	Create(ctx context.Context, a *AssignDrug) error
	GetByID(ctx context.Context, id uuid.UUID) (*AssignDrug, error)
	ListByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*AssignDrug, error)
	ListByStatus(ctx context.Context, status workflow.AssignDrugStatus, limit, offset int) ([]*AssignDrug, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to workflow.AssignDrugStatus) error
}
