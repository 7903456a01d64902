package treatment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

type Repository interface {
	// Create persists the treatment with its phases and their catalog
	// items, and points current_phase_id at the first phase.
	Create(ctx context.Context, t *Treatment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error)
	List(ctx context.Context, doctorID, patientID uuid.UUID, limit, offset int) ([]*Treatment, int, error)
	GetPhase(ctx context.Context, phaseID uuid.UUID) (*Phase, error)
	// SavePhaseItems rewrites the assignment state of the phase's catalog.
	SavePhaseItems(ctx context.Context, p *Phase) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from []workflow.TreatmentStatus, to workflow.TreatmentStatus, endDate *time.Time) error
	SetCurrentPhase(ctx context.Context, treatmentID, phaseID uuid.UUID) error
}
