package schedule

import (
	"context"

	"github.com/google/uuid"

	"github.com/ferticare/portal/internal/domain/workflow"
)

type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	// ListBlockingByDoctor returns the doctor's PENDING and CHANGED
	// schedules, excluding the given id so updates do not conflict with
	// themselves.
	ListBlockingByDoctor(ctx context.Context, doctorID, exclude uuid.UUID) ([]*Schedule, error)
	ListByDoctorWindow(ctx context.Context, doctorID uuid.UUID, window workflow.Interval, status workflow.ScheduleStatus) ([]*Schedule, error)
	ListByPhase(ctx context.Context, phaseID uuid.UUID) ([]*Schedule, error)
	StatusesForPhase(ctx context.Context, phaseID uuid.UUID) ([]workflow.ScheduleStatus, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []workflow.ScheduleStatus, to workflow.ScheduleStatus) error
	// CancelOpenByTreatment cancels every PENDING/CHANGED schedule of the
	// treatment, returning how many rows changed. Used by treatment
	// cancellation and the contract-deadline sweep.
	CancelOpenByTreatment(ctx context.Context, treatmentID uuid.UUID) (int64, error)
}
